package bot

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
	qrcode "github.com/skip2/go-qrcode"
)

// ChatLink is a wa.me link that opens a chat with text prefilled.
func ChatLink(phone, text string) (string, error) {
	to := strings.TrimPrefix(WhatsAppNumber(phone), "+")
	if to == "" {
		return "", errors.Errorf("no usable phone in %q", phone)
	}
	link := "https://wa.me/" + to
	if text != "" {
		link += "?text=" + url.QueryEscape(text)
	}
	return link, nil
}

// ReminderQR renders ChatLink as a PNG so staff can send the reminder from
// their own phone.
func ReminderQR(phone, text string, size int) ([]byte, error) {
	link, err := ChatLink(phone, text)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(link, qrcode.Medium, size)
}

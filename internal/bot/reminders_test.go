package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lojf/dancestudio/internal/models"
	"github.com/lojf/dancestudio/internal/services"
)

var payday = time.Date(2024, 1, 29, 0, 0, 0, 0, time.UTC)

type dueStub []services.StudentClass

func (d dueStub) DueToday(time.Time) ([]services.StudentClass, error) { return d, nil }

type recorder struct {
	to   []string
	text []string
	fail string
}

func (r *recorder) Send(_ context.Context, phone, text string) error {
	if phone == r.fail {
		return errors.New("rejected")
	}
	r.to = append(r.to, phone)
	r.text = append(r.text, text)
	return nil
}

func due(name, phone, class string) services.StudentClass {
	return services.StudentClass{Student: models.Student{Name: name, Phone: phone}, ClassName: class}
}

func TestSendDueReminders(t *testing.T) {
	list := dueStub{
		due("Ali", "530 111 22 33", "Salsa"),
		due("Veli", "", "Salsa"),
		due("Ayşe", "0532 999 88 77", "Bachata"),
		due("Bozuk", "5550000000", "Tango"),
	}
	rec := &recorder{fail: "+905550000000"}

	rep, err := SendDueReminders(context.Background(), list, rec, payday)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if rep.Due != 4 || rep.Sent != 2 || rep.Skipped != 1 || rep.Failed != 1 {
		t.Fatalf("report: %+v", rep)
	}
	if rec.to[0] != "+905301112233" || rec.to[1] != "+905329998877" {
		t.Errorf("numbers: %v", rec.to)
	}
	if !strings.Contains(rec.text[1], "Bachata dersleri için güncel ödeme tarihi 29-01-2024’tir.") {
		t.Errorf("text: %q", rec.text[1])
	}
}

func TestSendDueReminders_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := SendDueReminders(ctx, dueStub{due("Ali", "5301112233", "Salsa")}, &recorder{}, payday)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestReminderText(t *testing.T) {
	got := ReminderText("Salsa", payday)
	if !strings.HasPrefix(got, "Sayın üyemiz,\n\n") {
		t.Errorf("greeting: %q", got)
	}
	if !strings.HasSuffix(got, "Saygılarımla,\n111 Dans Stüdyos") {
		t.Errorf("signature: %q", got)
	}
}

func TestCloudClient_Send(t *testing.T) {
	var gotPath, gotAuth string
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewCloudClient(srv.URL+"/", "12345", "tok")
	if err := c.Send(context.Background(), "+905301112233", "merhaba"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotPath != "/12345/messages" {
		t.Errorf("path: %q", gotPath)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("auth: %q", gotAuth)
	}
	if body["to"] != "905301112233" || body["type"] != "text" {
		t.Errorf("body: %v", body)
	}
}

func TestCloudClient_SendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := NewCloudClient(srv.URL, "1", "x").Send(context.Background(), "+90530", "hi")
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("want 401 error, got %v", err)
	}
}

func TestNewSender(t *testing.T) {
	if _, ok := NewSender("", "", "").(ConsoleSender); !ok {
		t.Error("no token should log to console")
	}
	if _, ok := NewSender("https://x", "1", "tok").(*CloudClient); !ok {
		t.Error("token and phone id should use the cloud api")
	}
}

func TestReminderQR(t *testing.T) {
	link, err := ChatLink("0530 111 22 33", "Merhaba Ali")
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if link != "https://wa.me/905301112233?text=Merhaba+Ali" {
		t.Errorf("link: %q", link)
	}

	png, err := ReminderQR("5301112233", "x", 128)
	if err != nil {
		t.Fatalf("qr: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("not a png")
	}

	if _, err := ReminderQR("", "x", 128); err == nil {
		t.Error("empty phone should fail")
	}
}

package bot

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/lojf/dancestudio/internal/schedule"
	"github.com/lojf/dancestudio/internal/services"
)

// DueLister finds the students whose payment date is today.
type DueLister interface {
	DueToday(today time.Time) ([]services.StudentClass, error)
}

// WhatsAppNumber turns a stored phone into +<country><number>; Turkish by
// default. Empty when the phone has no usable digits.
func WhatsAppNumber(phone string) string {
	return services.NormPhone(phone)
}

// ReminderText is the payment-day message sent to a student.
func ReminderText(className string, today time.Time) string {
	return fmt.Sprintf(`Sayın üyemiz,

Dans kursuna devamlılığınız için teşekkür ederiz.
%s dersleri için güncel ödeme tarihi %s’tir.
Ödeme yaptıysanız lütfen bu mesajı dikkate almayınız.

Saygılarımla,
111 Dans Stüdyos`, className, today.Format(schedule.TRDate))
}

type Report struct {
	Due     int
	Sent    int
	Skipped int
	Failed  int
}

// SendDueReminders messages every student due today. Students without a
// phone are skipped; a failed send is logged and the rest still go out.
func SendDueReminders(ctx context.Context, due DueLister, sender Sender, today time.Time) (Report, error) {
	var rep Report
	students, err := due.DueToday(today)
	if err != nil {
		return rep, err
	}
	rep.Due = len(students)
	if len(students) == 0 {
		log.Printf("[reminders] no payments due %s", today.Format(schedule.TRDate))
		return rep, nil
	}

	for _, s := range students {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		to := WhatsAppNumber(s.Phone)
		if to == "" {
			log.Printf("[reminders] %s has no phone number", s.Name)
			rep.Skipped++
			continue
		}
		if err := sender.Send(ctx, to, ReminderText(s.ClassName, today)); err != nil {
			log.Printf("[reminders] send to %s (%s): %v", s.Name, to, err)
			rep.Failed++
			continue
		}
		rep.Sent++
	}
	return rep, nil
}

package jobqueue

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/recipefox/recipefox/app/models"
	"github.com/recipefox/recipefox/app/repository"
	"github.com/recipefox/recipefox/internal/pkg/mail"
)

// swapped in tests
var (
	sendMail = mail.SendMail
	findUser = func(id uint) (*models.User, error) {
		return repository.GetGlobalFactory().GetUserRepository().GetByID(id)
	}
)

func (q *Queue) processPremiumActivatedEmailJob(ctx context.Context, job *Job) error {
	payload, err := PremiumActivatedEmailPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	if payload.SubscriberID == 0 {
		return fmt.Errorf("payload has no subscriber id")
	}

	user, err := findUser(payload.SubscriberID)
	if err != nil {
		return fmt.Errorf("load subscriber %d: %w", payload.SubscriberID, err)
	}
	if user.Email == "" {
		log.Warnf("[JobQueue] Subscriber %d has no email, skipping premium mail", user.ID)
		return nil
	}

	subject, body := premiumActivatedMail(user.Name, payload)
	if err := sendMail(user.Email, subject, body); err != nil {
		return fmt.Errorf("send premium mail to subscriber %d: %w", user.ID, err)
	}

	log.Infof("[JobQueue] Premium mail sent for transaction %s", payload.TransactionID)
	return nil
}

func premiumActivatedMail(name string, p *PremiumActivatedEmailPayload) (string, string) {
	subject := "Your RecipeFox Premium is active"
	body := fmt.Sprintf(
		"<p>Hi %s,</p>"+
			"<p>thanks for your payment of NPR %s. Your %s premium access is active until %s.</p>"+
			"<p>Reference: %s</p>",
		html.EscapeString(name),
		html.EscapeString(p.Amount),
		html.EscapeString(p.Tier),
		p.ExpiryDate.Format(time.DateOnly),
		html.EscapeString(p.TransactionID),
	)
	return subject, body
}

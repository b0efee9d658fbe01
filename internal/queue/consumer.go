package queue

// The background consumer drains the notification.events queue,
// renders each envelope to email through the mailer and appends a
// line to logs/notifications.log as a durable local trace.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/giosicat/inaanak-portal/internal/mailer"
)

// StartNotificationConsumer connects to the broker, declares the
// durable notifications queue and starts consuming.  It runs a
// reconnect loop with exponential backoff and keeps running across
// broker restarts; processing errors are logged and the offending
// message rejected without requeue so the loop never spins on a
// poison message.
func StartNotificationConsumer(m *mailer.Mailer) {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(brokerURL())
		if err != nil {
			log.Printf("notification-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, m); err != nil {
			log.Printf("notification-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection, m *mailer.Mailer) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("notification-consumer: set QoS failed: %v", err)
	}

	if _, err := ch.QueueDeclare(notificationQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(notificationQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleEnvelope(d.Body, m); err != nil {
			log.Printf("notification-consumer: handle message failed: %v", err)
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleEnvelope(body []byte, m *mailer.Mailer) error {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("unmarshal envelope: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var line string
	switch env.Type {
	case TypeVerifyEmail:
		var ev VerifyEmailEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return fmt.Errorf("unmarshal %s: %w", env.Type, err)
		}
		if err := m.SendVerificationCode(ctx, ev.Email, ev.Name, ev.Code); err != nil {
			return err
		}
		// The code itself stays out of the trace.
		line = fmt.Sprintf("[%s] Verification code sent | email=%s", env.PublishedAt, ev.Email)

	case TypeRegistrationSubmitted:
		var ev RegistrationSubmittedEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return fmt.Errorf("unmarshal %s: %w", env.Type, err)
		}
		if err := m.SendRegistrationSubmitted(ctx, ev.GuardianEmail, ev.GuardianName, ev.ReferenceNumber, ev.InaanakName); err != nil {
			return err
		}
		line = fmt.Sprintf("[%s] Registration submitted | reference=%s | guardian=%s",
			env.PublishedAt, ev.ReferenceNumber, ev.GuardianEmail)

	case TypeStatusUpdated:
		var ev StatusUpdatedEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return fmt.Errorf("unmarshal %s: %w", env.Type, err)
		}
		if err := m.SendStatusUpdated(ctx, ev.GuardianEmail, ev.GuardianName, ev.ReferenceNumber, ev.Status, ev.RejectionReason); err != nil {
			return err
		}
		line = fmt.Sprintf("[%s] Status updated | reference=%s | status=%s",
			env.PublishedAt, ev.ReferenceNumber, ev.Status)

	default:
		return fmt.Errorf("unknown event type %q", env.Type)
	}
	return appendTrace(line)
}

func appendTrace(line string) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join("logs", "notifications.log"),
		os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

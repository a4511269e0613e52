package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"food-market/bot"
	"food-market/config"
	"food-market/db"
	"food-market/scheduler"
	"food-market/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	// Check for migrate subcommand
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		runMigrate(cfg)
		return
	}

	if err := db.Init(cfg.DB); err != nil {
		fmt.Fprintln(os.Stderr, "db:", err)
		os.Exit(1)
	}
	defer db.Close()

	// Optional auto-migration (useful in production and for fresh DBs).
	// Set AUTO_MIGRATE=1 (or "true") to enable.
	if v := strings.TrimSpace(os.Getenv("AUTO_MIGRATE")); v == "1" || strings.EqualFold(v, "true") {
		if err := applyMigrations(context.Background(), false); err != nil {
			fmt.Fprintln(os.Stderr, "migrate:", err)
			os.Exit(1)
		}
	}

	services.SetPlatformDefaults(cfg.Cancellation, cfg.Commission)

	var notifier *bot.Notifier
	if cfg.Telegram.Token != "" {
		notifier, err = bot.NewNotifier(cfg.Telegram.Token, cfg.Telegram.AccountingChatID)
		if err != nil {
			fmt.Fprintln(os.Stderr, "notifier:", err)
			os.Exit(1)
		}
	} else {
		fmt.Println("NOTIFY_TOKEN not set; fired notifications will only be logged.")
	}

	sched := scheduler.New(scheduler.NewPGBackend())
	worker := scheduler.NewWorker(cfg.Worker.PollInterval, cfg.Worker.MaxParallel)
	worker.Handle("order_reminder", orderReminderHandler(notifier))
	worker.Handle("recovery_check", recoveryCheckHandler(sched, notifier))
	worker.Handle("payout_build", payoutBuildHandler(sched))
	// Drop finished jobs from the scheduler's action table.
	worker.OnFired(sched.MarkFiredJob)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("Settlement worker started.")
	if err := worker.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "worker:", err)
		os.Exit(1)
	}
	fmt.Println("Settlement worker stopped.")
}

type reminderPayload struct {
	ChatID  int64 `json:"chat_id"`
	OrderID int64 `json:"order_id"`
}

func orderReminderHandler(notifier *bot.Notifier) scheduler.Handler {
	return func(ctx context.Context, payload []byte) error {
		var p reminderPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("reminder payload: %w", err)
		}
		// Skip the reminder if the order already moved on. Duplicate firings
		// land here too and become no-ops.
		o, err := services.GetOrder(ctx, p.OrderID)
		if err != nil {
			return err
		}
		if o.Status != services.OrderStatusNew && o.Status != services.OrderStatusPreparing {
			return nil
		}
		text := bot.ReminderText(p.OrderID)
		if notifier == nil {
			log.Printf("reminder (no notifier): chat %d: %s", p.ChatID, text)
			return nil
		}
		return notifier.NotifyChat(p.ChatID, text)
	}
}

type recoveryPayload struct {
	PayoutID  int64     `json:"payout_id"`
	SettledAt time.Time `json:"settled_at"`
	Note      string    `json:"note"`
}

// recoveryCheckHandler finishes a confirmed payout: it re-runs the recovery
// transition for the receivables still unresolved and reschedules itself
// while any remain. Already-completed payouts make this a no-op, so duplicate
// firings are harmless.
func recoveryCheckHandler(sched *scheduler.Scheduler, notifier *bot.Notifier) scheduler.Handler {
	return func(ctx context.Context, payload []byte) error {
		var p recoveryPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("recovery payload: %w", err)
		}
		unresolved, err := services.ConfirmPayout(ctx, p.PayoutID, p.SettledAt, p.Note)
		if err != nil {
			return err
		}
		if unresolved > 0 {
			log.Printf("payout %d: %d receivables unresolved, rescheduling check", p.PayoutID, unresolved)
			_, err := sched.Schedule(ctx, "recovery_check", payload, time.Now().Add(5*time.Minute))
			return err
		}
		payout, err := services.GetPayout(ctx, p.PayoutID)
		if err != nil {
			return err
		}
		if notifier == nil {
			log.Printf("payout completed (no notifier): %s", bot.PayoutCompletedText(payout))
			return nil
		}
		return notifier.NotifyAccounting(bot.PayoutCompletedText(payout))
	}
}

type payoutBuildPayload struct {
	MerchantID int64 `json:"merchant_id"`
}

// payoutBuildHandler runs the merchant's periodic payout build and schedules
// the next one per the commission config's cadence. A claim conflict just
// pushes the attempt back a few minutes.
func payoutBuildHandler(sched *scheduler.Scheduler) scheduler.Handler {
	return func(ctx context.Context, payload []byte) error {
		var p payoutBuildPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("payout build payload: %w", err)
		}

		payout, err := services.BuildPayout(ctx, p.MerchantID, time.Now())
		if errors.Is(err, services.ErrClaimConflict) {
			_, err := sched.Schedule(ctx, "payout_build", payload, time.Now().Add(5*time.Minute))
			return err
		}
		if err != nil {
			return err
		}
		if payout == nil {
			log.Printf("merchant %d: nothing outstanding, no payout created", p.MerchantID)
		} else {
			log.Printf("merchant %d: payout %s initiated, total %d across %d orders",
				p.MerchantID, payout.Ref, payout.Total, len(payout.OrderIDs))
		}

		cfg, err := services.GetCommissionConfig(ctx, p.MerchantID)
		if err != nil {
			return err
		}
		_, err = sched.Schedule(ctx, "payout_build", payload, services.NextPayoutAt(cfg, time.Now()))
		return err
	}
}

func runMigrate(cfg *config.Config) {
	if err := db.Init(cfg.DB); err != nil {
		fmt.Fprintln(os.Stderr, "db:", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := applyMigrations(context.Background(), true); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jkowalik/billwatch/internal/cli"
	"github.com/jkowalik/billwatch/internal/model"
)

// ConsoleNotifier is the fallback sink when no webhook is configured. It
// performs no network calls; new items are printed to the writer and
// counted in the log.
type ConsoleNotifier struct {
	out io.Writer
}

// NewConsoleNotifier creates a console notifier writing to out.
func NewConsoleNotifier(out io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{out: out}
}

// Notify prints each new item on its own line, charges before payments.
func (n *ConsoleNotifier) Notify(_ context.Context, charges []model.Charge, payments []model.Payment) error {
	for _, charge := range charges {
		fmt.Fprintf(n.out, "%s %s %s due %s\n",
			cli.WarningStyle.Render("New settlement:"),
			cli.TitleStyle.Render(charge.Title),
			cli.AmountStyle.Render(fmt.Sprintf("%.2f PLN", charge.Value)),
			cli.SubtleStyle.Render(charge.DueDate.Format("02 Jan 2006")))
	}
	for _, payment := range payments {
		fmt.Fprintf(n.out, "%s %s on %s\n",
			cli.SuccessStyle.Render("New payment:"),
			cli.AmountStyle.Render(fmt.Sprintf("%.2f PLN", payment.Value)),
			cli.SubtleStyle.Render(payment.Date.Format("02 Jan 2006")))
	}

	slog.Info("New items observed",
		"new_charges", len(charges),
		"new_payments", len(payments))

	return nil
}

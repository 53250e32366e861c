// Package listeners wires domain events to metrics and logs.
package listeners

import (
	"context"

	"github.com/yellowrose/possrv/app/services"
	"github.com/yellowrose/possrv/pkg/event"
	"github.com/yellowrose/possrv/pkg/logger"
	"github.com/yellowrose/possrv/pkg/metrics"
)

// Register attaches every listener. Call once at boot.
func Register() {
	event.Listen(services.EventSaleCompleted, onSaleCompleted)
	event.Listen(services.EventSaleFailed, onSaleFailed)
	for _, name := range []string{services.EventLogin, services.EventLoginFailed, services.EventLogout} {
		event.Listen(name, countAuth(name))
	}
}

func onSaleCompleted(ctx context.Context, payload interface{}) {
	sale, ok := payload.(services.SaleEvent)
	if !ok {
		return
	}
	metrics.SalesCompleted.Inc()
	metrics.SalesAmount.Add(sale.Total)
	logger.WithCtx(ctx).Info("sale completed",
		"terminal", sale.TerminalID,
		"invoice", sale.InvoiceNumber,
		"total", sale.Total,
		"points_earned", sale.PointsEarned,
		"payment_method", sale.PaymentMethod,
		"lines", sale.Lines,
	)
}

func onSaleFailed(ctx context.Context, payload interface{}) {
	sale, ok := payload.(services.SaleEvent)
	if !ok {
		return
	}
	logger.WithCtx(ctx).Warn("sale not recorded", "terminal", sale.TerminalID, "total", sale.Total)
}

func countAuth(name string) event.Handler {
	return func(ctx context.Context, payload interface{}) {
		metrics.AuthEvents.WithLabelValues(name).Inc()
		if a, ok := payload.(services.AuthEvent); ok {
			logger.WithCtx(ctx).Debug(name, "terminal", a.TerminalID, "username", a.Username)
		}
	}
}

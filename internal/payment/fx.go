package payment

import (
	"github.com/gridfare/gridfare/internal/payment/adapters"
	"github.com/gridfare/gridfare/internal/payment/adapters/stripe"
	paymentdomain "github.com/gridfare/gridfare/internal/payment/domain"
	stripeprocessor "github.com/gridfare/gridfare/internal/payment/processor/stripe"
	"github.com/gridfare/gridfare/internal/payment/repository"
	"github.com/gridfare/gridfare/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(func() *adapters.Registry {
		return adapters.NewRegistry(stripe.NewFactory())
	}),
	fx.Provide(fx.Annotate(
		stripeprocessor.NewClient,
		fx.As(new(paymentdomain.Processor)),
	)),
	fx.Provide(service.NewService),
)

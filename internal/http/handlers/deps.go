package handlers

import (
	"database/sql"
	"sync"

	"tripbook/internal/http/middleware"
	"tripbook/internal/repositories"
	"tripbook/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deps are the long-lived collaborators handlers build services from.
// A nil DB makes repositories fall back to config.DB.
type Deps struct {
	DB       *sql.DB
	Gateway  services.ChargeGateway
	Cache    services.StatusStore
	Queue    services.PassengerSyncQueue
	Verifier *services.SignatureVerifier
	Auth     services.AuthService
	Logger   *zap.Logger
}

var (
	depsMu sync.RWMutex
	deps   Deps
)

// SetDeps installs the collaborators used by every handler.
func SetDeps(d Deps) {
	depsMu.Lock()
	defer depsMu.Unlock()
	deps = d
}

func currentDeps() Deps {
	depsMu.RLock()
	defer depsMu.RUnlock()
	return deps
}

func paymentRepo(d Deps) repositories.PaymentRepository {
	return repositories.PaymentRepository{DB: d.DB}
}

func passengerRepo(d Deps) repositories.PassengerRepository {
	return repositories.PassengerRepository{DB: d.DB}
}

func paymentIntentService(c *gin.Context) services.PaymentIntentService {
	d := currentDeps()
	reqID := middleware.GetRequestID(c)
	return services.PaymentIntentService{
		Trips:     repositories.TripRepository{DB: d.DB},
		Payments:  paymentRepo(d),
		Resolver:  services.PassengerResolver{Passengers: passengerRepo(d), Logger: d.Logger, RequestID: reqID},
		Gateway:   d.Gateway,
		Cache:     d.Cache,
		Logger:    d.Logger,
		RequestID: reqID,
	}
}

func webhookProcessor(c *gin.Context) services.WebhookProcessor {
	d := currentDeps()
	return services.WebhookProcessor{
		Payments:   paymentRepo(d),
		Passengers: passengerRepo(d),
		Verifier:   d.Verifier,
		Queue:      d.Queue,
		Cache:      d.Cache,
		Logger:     d.Logger,
		RequestID:  middleware.GetRequestID(c),
	}
}

func seatService(c *gin.Context) services.SeatService {
	d := currentDeps()
	return services.SeatService{
		Seats:      repositories.SeatAssignmentRepository{DB: d.DB},
		Passengers: passengerRepo(d),
		Logger:     d.Logger,
		RequestID:  middleware.GetRequestID(c),
	}
}

func reconciliationService(c *gin.Context) services.ReconciliationService {
	d := currentDeps()
	return services.ReconciliationService{
		Payments:   paymentRepo(d),
		Passengers: passengerRepo(d),
		Cache:      d.Cache,
		Logger:     d.Logger,
		RequestID:  middleware.GetRequestID(c),
	}
}

func receiptService(c *gin.Context) services.ReceiptService {
	d := currentDeps()
	return services.ReceiptService{
		Payments:   paymentRepo(d),
		Passengers: passengerRepo(d),
		Trips:      repositories.TripRepository{DB: d.DB},
		RequestID:  middleware.GetRequestID(c),
	}
}

package services

import (
	"context"
	"strings"

	"tripbook/internal/domain"
	"tripbook/internal/repositories"
	"tripbook/internal/utils"

	"go.uber.org/zap"
)

// PassengerResolver turns arbitrary passenger ids into ids scoped to one trip.
type PassengerResolver struct {
	Passengers repositories.PassengerRepository
	Logger     *zap.Logger
	RequestID  string
}

// Resolve keeps ids already in tripID and clones the rest (master records or
// records of another trip) into tripID. Ids that fail to load or clone are
// dropped; the caller decides what an empty result means. When payerID is set
// it is stamped as paid_by on every resolved passenger, best-effort.
func (r PassengerResolver) Resolve(ctx context.Context, tripID string, ids []string, payerID string) ([]string, error) {
	tripID = strings.TrimSpace(tripID)
	if tripID == "" {
		return nil, domain.ValidationError{Field: "tripId", Msg: "wajib diisi"}
	}
	log := scopedLogger(r.Logger, r.RequestID, "passenger_resolver")

	resolved := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		resolved = append(resolved, id)
	}

	for _, id := range utils.UniqueNonEmpty(ids) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p, err := r.Passengers.GetByID(ctx, id)
		if err != nil {
			log.Warn("passenger skipped: load failed", zap.String("passenger_id", id), zap.Error(err))
			continue
		}

		if p.TripID == tripID {
			add(p.ID)
			continue
		}

		cloneID, err := r.Passengers.CloneIntoTrip(ctx, p, tripID)
		if err != nil {
			log.Warn("passenger skipped: clone failed", zap.String("passenger_id", id), zap.String("trip_id", tripID), zap.Error(err))
			continue
		}
		log.Info("passenger cloned into trip",
			zap.String("source_id", p.ID),
			zap.String("clone_id", cloneID),
			zap.String("trip_id", tripID),
			zap.Bool("from_master", p.IsMaster()),
		)
		add(cloneID)
	}

	if payerID = strings.TrimSpace(payerID); payerID != "" && len(resolved) > 0 {
		if err := r.Passengers.SetPaidBy(ctx, resolved, payerID); err != nil {
			log.Warn("paid_by stamp failed", zap.String("payer_id", payerID), zap.Error(err))
		}
	}

	return resolved, nil
}

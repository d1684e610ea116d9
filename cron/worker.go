// Package cron runs the background expiry sweep: PENDING bookings that no
// provider accepted within the TTL are moved to EXPIRED along with their
// outstanding requests.
package cron

import (
	"context"
	"log"
	"time"

	"lokals/config"
	bookingRepo "lokals/database/repository/booking"
	"lokals/models"
	"lokals/services/broadcast"
	"lokals/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const TypeExpirySweep = "booking:expire_sweep"

const sweepInterval = time.Minute

// InitExpiryWorker starts the async worker and the periodic enqueuer in the
// background.
func InitExpiryWorker(repo bookingRepo.BookingRepository, broadcaster broadcast.Broadcaster) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisExpiryQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeExpirySweep, handleExpirySweep(repo, broadcaster))

	go func() {
		log.Println("[ExpiryWorker] starting async worker...")
		const maxAttempts = 5
		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[ExpiryWorker] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)
				if attempts == maxAttempts {
					log.Fatal("[ExpiryWorker] max retry attempts reached, exiting")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()

	go enqueueSweeps(redisOpts)
}

// enqueueSweeps drops a sweep task on the queue once per interval. The task
// is unique per interval so overlapping servers don't double-sweep.
func enqueueSweeps(redisOpts asynq.RedisClientOpt) {
	client := asynq.NewClient(redisOpts)
	defer client.Close()

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for range ticker.C {
		task := asynq.NewTask(TypeExpirySweep, nil)
		if _, err := client.Enqueue(task, asynq.Unique(sweepInterval)); err != nil {
			log.Printf("[ExpiryWorker] failed to enqueue sweep: %v", err)
		}
	}
}

func handleExpirySweep(repo bookingRepo.BookingRepository, broadcaster broadcast.Broadcaster) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		logger := utils.GetLogger()
		ttl := time.Duration(config.AppConfig.PendingBookingTTLMinutes) * time.Minute
		cutoff := time.Now().Add(-ttl)

		stale, err := repo.ListPendingOlderThan(ctx, cutoff)
		if err != nil {
			logger.Error("expiry sweep failed to list stale bookings", zap.Error(err))
			return err
		}

		for _, b := range stale {
			now := time.Now()
			ok, err := repo.UpdateStatus(ctx, b.ID, bookingRepo.StatusWrite{
				ExpectedStatus: models.StatusPending,
				NewStatus:      models.StatusExpired,
				StampField:     "expired_at",
				At:             now,
			})
			if err != nil {
				logger.Error("failed to expire booking", zap.String("bookingID", b.ID), zap.Error(err))
				continue
			}
			if !ok {
				// Accepted or cancelled between listing and writing; leave it.
				continue
			}

			if err := repo.ExpirePendingRequests(ctx, b.ID, now); err != nil {
				logger.Error("failed to expire requests", zap.String("bookingID", b.ID), zap.Error(err))
			}

			if broadcaster != nil {
				event := models.BookingEvent{BookingID: b.ID, Status: models.StatusExpired, At: now}
				if err := broadcaster.Publish(ctx, event); err != nil {
					logger.Warn("failed to publish expiry", zap.String("bookingID", b.ID), zap.Error(err))
				}
			}

			if err := repo.AppendLifecycleEvent(ctx, &models.LifecycleEvent{
				BookingID: b.ID,
				Phase:     "EXPIRY",
				EventType: "booking_expired",
				EventData: map[string]any{"pending_since": b.PendingAt},
			}); err != nil {
				logger.Warn("failed to append expiry event", zap.String("bookingID", b.ID), zap.Error(err))
			}

			logger.Info("expired stale booking", zap.String("bookingID", b.ID))
		}
		return nil
	}
}

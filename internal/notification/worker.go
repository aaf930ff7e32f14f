package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"shift-tracker-backend/internal/geofence"
	"shift-tracker-backend/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Alert describes a fix captured outside the work site.
type Alert struct {
	FixID          string
	DistanceMeters float64
	CapturedAt     time.Time
}

// WorkerPool fans geofence alerts out to every push subscription.
type WorkerPool struct {
	size     int
	jobs     chan Alert
	db       *gorm.DB
	webpush  *webpush.Options
	sender   NotificationSender
	siteName string
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options, siteName string) *WorkerPool {
	return &WorkerPool{
		size:     size,
		jobs:     make(chan Alert, size),
		db:       db,
		webpush:  webpushOptions,
		sender:   &WebPushSender{},
		siteName: siteName,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Worker %d started", id)
	for {
		select {
		case alert := <-wp.jobs:
			log.Printf("Worker %d processing alert for fix %s", id, alert.FixID)
			wp.sendAlert(ctx, alert)
		case <-ctx.Done():
			log.Printf("Worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues an alert. It never blocks the caller: when every worker is
// busy and the queue is full the alert is dropped and false is returned.
func (wp *WorkerPool) Dispatch(alert Alert) bool {
	select {
	case wp.jobs <- alert:
		return true
	default:
		log.Printf("Notification queue full, dropping alert for fix %s", alert.FixID)
		return false
	}
}

// GeofenceExit queues an alert for a fix outside the work site.
func (wp *WorkerPool) GeofenceExit(fix model.LocationFix, result geofence.Result) {
	wp.Dispatch(Alert{
		FixID:          fix.ID,
		DistanceMeters: result.DistanceMeters,
		CapturedAt:     fix.Timestamp,
	})
}

// Message renders the push payload for an alert.
func (wp *WorkerPool) Message(alert Alert) string {
	site := wp.siteName
	if site == "" {
		site = "the work location"
	}
	return fmt.Sprintf("You are %.0f meters away from %s", alert.DistanceMeters, site)
}

func (wp *WorkerPool) sendAlert(ctx context.Context, alert Alert) {
	var subscriptions []model.PushSubscription
	if err := wp.db.WithContext(ctx).Find(&subscriptions).Error; err != nil {
		log.Printf("Error fetching subscriptions for fix %s: %v", alert.FixID, err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	log.Printf("Sending %d notifications for fix %s", len(subscriptions), alert.FixID)
	message := []byte(wp.Message(alert))
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, message)
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}

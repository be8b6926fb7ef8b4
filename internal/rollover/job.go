// Package rollover resets the mirrored "today" counters once per business
// day. The lifetime counters are never touched here.
package rollover

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"kada-backend/internal/cache"
	"kada-backend/internal/config"
	"kada-backend/internal/mirror"
	"kada-backend/internal/models"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// lockTTL outlives the day so a replica starting late cannot repeat a reset
// that already happened.
const lockTTL = 26 * time.Hour

var ErrAlreadyDone = errors.New("rollover already done for this date")

type Releaser interface {
	Release(ctx context.Context) error
}

// Locker grants a key to one holder at a time; Obtain returns ErrAlreadyDone
// when someone else holds it.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (Releaser, error)
}

type redisLocker struct {
	client *redislock.Client
	owner  string
}

func NewRedisLocker(client *redislock.Client) Locker {
	if client == nil {
		return nil
	}
	return &redisLocker{client: client, owner: uuid.NewString()}
}

func (l *redisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (Releaser, error) {
	lock, err := l.client.Obtain(ctx, key, ttl, &redislock.Options{Metadata: l.owner})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrAlreadyDone
	}
	if err != nil {
		return nil, err
	}
	return lock, nil
}

// VendorSource lists the vendors whose counters roll over.
type VendorSource interface {
	VendorIDs(ctx context.Context) ([]uint, error)
}

type DBVendors struct {
	DB *gorm.DB
}

func (d DBVendors) VendorIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	if err := d.DB.WithContext(ctx).Model(&models.Vendor{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}
	return ids, nil
}

type Result struct {
	Date    string `json:"date"`
	Vendors int    `json:"vendors"`
}

type Job struct {
	vendors VendorSource
	store   mirror.Store
	locker  Locker
	logger  *logrus.Logger

	mu       sync.Mutex
	lastDate string
}

// NewJob accepts a nil locker for single-instance deployments; the job then
// only guards against repeats within this process.
func NewJob(vendors VendorSource, store mirror.Store, locker Locker, logger *logrus.Logger) *Job {
	return &Job{vendors: vendors, store: store, locker: locker, logger: logger}
}

// Run resets the counters for date (YYYY-MM-DD). Without force it runs at
// most once per date across every replica sharing the locker.
func (j *Job) Run(ctx context.Context, date string, force bool) (*Result, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !force && j.lastDate == date {
		return nil, ErrAlreadyDone
	}

	var lock Releaser
	if !force && j.locker != nil {
		var err error
		lock, err = j.locker.Obtain(ctx, cache.RolloverLockKey(date), lockTTL)
		if err != nil {
			return nil, err
		}
	}

	res, err := j.reset(ctx, date)
	if err != nil {
		// let the next attempt retry
		if lock != nil {
			if rerr := lock.Release(context.WithoutCancel(ctx)); rerr != nil {
				config.LogError(j.logger, "rollover", "Run", "lock release failed", date, rerr)
			}
		}
		return nil, err
	}

	j.lastDate = date
	return res, nil
}

func (j *Job) reset(ctx context.Context, date string) (*Result, error) {
	ids, err := j.vendors.VendorIDs(ctx)
	if err != nil {
		return nil, err
	}
	if err := mirror.ResetDailyCounters(ctx, j.store, ids, date); err != nil {
		return nil, err
	}
	j.logger.WithFields(logrus.Fields{"date": date, "vendors": len(ids)}).Info("daily counters rolled over")
	return &Result{Date: date, Vendors: len(ids)}, nil
}

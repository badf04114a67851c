package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/isaqueitalo/restaurante-1.0/internal/infra"
	"github.com/isaqueitalo/restaurante-1.0/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health reports the state of each backing service. db and rdb are nil when
// the memory ledger runs or the report queue is disabled; those show as
// "disabled" and do not fail the check. An open SMTP breaker is reported but
// does not fail it either: the till keeps working without e-mail.
func Health(db *gorm.DB, rdb *redis.Client, smtpCB *infra.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "disabled"
		if db != nil {
			dbStatus = "connected"
			sqlDB, err := db.DB()
			if err != nil || sqlDB.PingContext(ctx) != nil {
				dbStatus = "error"
			}
		}

		redisStatus := "disabled"
		var dlq int64
		if rdb != nil {
			redisStatus = "connected"
			if rdb.Ping(ctx).Err() != nil {
				redisStatus = "error"
			} else if n, err := worker.DLQLength(ctx, rdb, worker.QueueClosingReport); err == nil {
				dlq = n
			}
		}

		smtpState := "disabled"
		if smtpCB != nil {
			smtpState = smtpCB.State().String()
		}

		status := http.StatusOK
		if dbStatus == "error" || redisStatus == "error" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"ok":         status == http.StatusOK,
			"db":         dbStatus,
			"redis":      redisStatus,
			"smtp":       smtpState,
			"report_dlq": dlq,
		})
	}
}

package middleware

import (
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"
)

// App bundles the long-lived clients handlers need: the queue channel for
// enqueueing ingestion jobs, the optional result archive, and the local
// results directory.
type App struct {
	Queue      *amqp091.Channel
	S3         *s3.Client
	ResultsDir string
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(queue *amqp091.Channel, s3Client *s3.Client, resultsDir string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			app := &App{
				Queue:      queue,
				S3:         s3Client,
				ResultsDir: resultsDir,
			}
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}

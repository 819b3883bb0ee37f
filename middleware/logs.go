package middleware

import (
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"

	"Warden/Models"
)

// LogData is one request log line.
type LogData struct {
	Timestamp time.Time     `json:"timestamp"`
	Method    string        `json:"method"`
	Path      string        `json:"path"`
	Status    int           `json:"status"`
	Latency   time.Duration `json:"latency"`
	IP        string        `json:"ip"`
	UserID    interface{}   `json:"user_id,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// RequestLogger logs every request to the console and, when
// REQUEST_LOG_FILE is set, appends JSON lines to that file.
func RequestLogger() fiber.Handler {
	var file *os.File
	if path := os.Getenv("REQUEST_LOG_FILE"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			log.Printf("Error opening request log file: %v", err)
		} else {
			file = f
		}
	}

	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		data := LogData{
			Timestamp: start.UTC(),
			Method:    c.Method(),
			Path:      c.Path(),
			Status:    c.Response().StatusCode(),
			Latency:   time.Since(start),
			IP:        c.IP(),
		}
		if err != nil {
			data.Error = err.Error()
		}
		if user, ok := c.Locals("user").(Models.User); ok {
			data.UserID = user.ID
		}

		log.Printf("%s %s -> %d (%v)", data.Method, data.Path, data.Status, data.Latency)
		if file != nil {
			if line, jsonErr := json.Marshal(data); jsonErr == nil {
				file.Write(append(line, '\n'))
			}
		}
		return err
	}
}

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/openmonitor/alertd/pkg/models"
)

const (
	defaultResourceCount = 5
	defaultIntervalMs    = 1000 // 1 second
)

var simulatedEvents = []struct {
	event    string
	group    string
	value    string
	text     string
	severity []string
}{
	{"HighCPU", "OS", "%d%%", "cpu usage above threshold", []string{"warning", "minor", "major", "critical"}},
	{"DiskFull", "OS", "%d%%", "disk usage above threshold", []string{"warning", "major"}},
	{"HttpTimeout", "Web", "%dms", "slow response from health endpoint", []string{"minor", "major", "critical"}},
	{"SwapUsage", "OS", "%d%%", "swap in use", []string{"informational", "warning"}},
}

// submitEvent posts one raw event to the alert engine
func submitEvent(baseURL string, raw *models.RawEvent) error {
	body, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	resp, err := http.Post(baseURL+"/api/alerts", "application/json", bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// submitHeartbeat posts a heartbeat so the simulator shows up as an origin
func submitHeartbeat(baseURL, origin string) error {
	body, err := json.Marshal(models.HeartbeatRequest{
		Origin:  origin,
		Version: "simulator/1.0",
		Tags:    []string{"simulated"},
	})
	if err != nil {
		return err
	}
	resp, err := http.Post(baseURL+"/api/heartbeats", "application/json", bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func main() {
	baseURL := os.Getenv("ALERTD_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	resourceCount := defaultResourceCount
	if v := os.Getenv("SIMULATOR_RESOURCES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			resourceCount = n
		}
	}
	intervalMs := defaultIntervalMs
	if v := os.Getenv("SIMULATOR_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			intervalMs = n
		}
	}

	origin := "simulator/" + strconv.Itoa(os.Getpid())
	logrus.Infof("Simulating %d resources against %s every %dms", resourceCount, baseURL, intervalMs)

	ticker := time.NewTicker(time.Duration(intervalMs) * time.Millisecond)
	defer ticker.Stop()

	heartbeatTicker := time.NewTicker(30 * time.Second)
	defer heartbeatTicker.Stop()

	if err := submitHeartbeat(baseURL, origin); err != nil {
		logrus.Warnf("Failed to submit heartbeat: %v", err)
	}

	for {
		select {
		case <-heartbeatTicker.C:
			if err := submitHeartbeat(baseURL, origin); err != nil {
				logrus.Warnf("Failed to submit heartbeat: %v", err)
			}
		case <-ticker.C:
			tmpl := simulatedEvents[rand.Intn(len(simulatedEvents))]
			timeout := 300
			raw := &models.RawEvent{
				Environment: "SIMULATION",
				Resource:    fmt.Sprintf("host%02d", rand.Intn(resourceCount)),
				Event:       tmpl.event,
				Group:       tmpl.group,
				Severity:    tmpl.severity[rand.Intn(len(tmpl.severity))],
				Value:       fmt.Sprintf(tmpl.value, 50+rand.Intn(50)),
				Text:        tmpl.text,
				Origin:      origin,
				Tags:        []string{"simulated"},
				Timeout:     &timeout,
			}
			if err := submitEvent(baseURL, raw); err != nil {
				logrus.Warnf("Failed to submit event %s/%s: %v", raw.Resource, raw.Event, err)
			} else {
				logrus.Debugf("Submitted %s on %s (%s)", raw.Event, raw.Resource, raw.Severity)
			}
		}
	}
}

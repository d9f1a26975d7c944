package config

// Recommendations are suggestions derived from a metrics snapshot.
type Recommendations struct {
	IncreaseInbox      bool
	IncreaseClientSend bool
	IncreasePersist    bool
	Notes              []string
}

// Analyze examines a metrics.Collector snapshot against this room's frame
// budget.
func (c Config) Analyze(snapshot map[string]interface{}) *Recommendations {
	rec := &Recommendations{Notes: make([]string, 0)}
	budgetMs := float64(c.FrameInterval().Milliseconds())

	if frame, ok := snapshot["frame"].(map[string]interface{}); ok {
		if maxLat, ok := number(frame["max_latency_ms"]); ok && maxLat > budgetMs {
			rec.Notes = append(rec.Notes, "Frame latency exceeds the frame budget - lower frame_rate_hz")
		}
	}
	if actions, ok := snapshot["actions"].(map[string]interface{}); ok {
		if drops, ok := number(actions["inbox_drops"]); ok && drops > 0 {
			rec.IncreaseInbox = true
			rec.Notes = append(rec.Notes, "Actions dropped on a full inbox - increase inbox_buffer")
		}
	}
	if events, ok := snapshot["events"].(map[string]interface{}); ok {
		if errs, ok := number(events["errors"]); ok && errs > 0 {
			rec.IncreasePersist = true
			rec.Notes = append(rec.Notes, "Event write errors detected - check the database path")
		}
	}
	if ws, ok := snapshot["websocket"].(map[string]interface{}); ok {
		if errs, ok := number(ws["errors"]); ok && errs > 0 {
			rec.IncreaseClientSend = true
			rec.Notes = append(rec.Notes, "WebSocket errors detected - increase client_send_buffer")
		}
	}
	return rec
}

// Apply returns c with the recommended buffers doubled.
func (c Config) Apply(rec *Recommendations) Config {
	if rec.IncreaseInbox {
		c.Network.InboxBuffer *= 2
	}
	if rec.IncreaseClientSend {
		c.Network.ClientSendBuffer *= 2
	}
	if rec.IncreasePersist {
		c.Network.PersistBuffer *= 2
	}
	return c
}

// number accepts both in-process snapshots (int64) and decoded JSON (float64).
func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

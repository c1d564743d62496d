package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
)

// OTLPCore implements zapcore.Core for sending logs to an OTel Collector
type OTLPCore struct {
	zapcore.LevelEnabler
	endpoint      string
	serviceName   string
	client        *http.Client
	buffer        []LogRecord
	bufferMu      sync.Mutex
	batchSize     int
	batchInterval time.Duration
	stopChan      chan struct{}
	wg            sync.WaitGroup
}

// LogRecord represents a log entry in OTLP format
type LogRecord struct {
	Timestamp         int64       `json:"timeUnixNano"`
	SeverityNumber    int32       `json:"severityNumber"`
	SeverityText      string      `json:"severityText"`
	Body              interface{} `json:"body"`
	Attributes        []KeyValue  `json:"attributes,omitempty"`
	TraceID           string      `json:"traceId,omitempty"`
	SpanID            string      `json:"spanId,omitempty"`
	ObservedTimestamp int64       `json:"observedTimeUnixNano"`
}

// KeyValue represents an OTLP attribute
type KeyValue struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// OTLPLogPayload represents the OTLP log export request
type OTLPLogPayload struct {
	ResourceLogs []ResourceLogs `json:"resourceLogs"`
}

// ResourceLogs groups logs by resource
type ResourceLogs struct {
	Resource  Resource    `json:"resource"`
	ScopeLogs []ScopeLogs `json:"scopeLogs"`
}

// Resource represents the resource attributes
type Resource struct {
	Attributes []KeyValue `json:"attributes"`
}

// ScopeLogs groups logs by instrumentation scope
type ScopeLogs struct {
	Scope      Scope       `json:"scope"`
	LogRecords []LogRecord `json:"logRecords"`
}

// Scope represents the instrumentation scope
type Scope struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// NewOTLPCore creates a zapcore.Core that batches log records and posts
// them to the collector's HTTP log endpoint.
func NewOTLPCore(cfg *Config, level zapcore.LevelEnabler) *OTLPCore {
	if cfg == nil || cfg.OTLPEndpoint == "" {
		return nil
	}

	// The collector exposes gRPC on :4317 and HTTP on :4318. The config
	// carries the gRPC endpoint, so rewrite the port for log export.
	endpoint := cfg.OTLPEndpoint
	if strings.HasSuffix(endpoint, ":4317") {
		endpoint = strings.TrimSuffix(endpoint, ":4317") + ":4318"
	}
	httpEndpoint := fmt.Sprintf("http://%s/v1/logs", endpoint)

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	batchInterval := cfg.BatchInterval
	if batchInterval <= 0 {
		batchInterval = 1 * time.Second
	}

	timeout := cfg.OTLPTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	core := &OTLPCore{
		LevelEnabler:  level,
		endpoint:      httpEndpoint,
		serviceName:   cfg.ServiceName,
		client:        &http.Client{Timeout: timeout},
		buffer:        make([]LogRecord, 0, batchSize),
		batchSize:     batchSize,
		batchInterval: batchInterval,
		stopChan:      make(chan struct{}),
	}

	core.wg.Add(1)
	go core.flushLoop()

	return core
}

// With adds structured context to the Core
func (c *OTLPCore) With(fields []zapcore.Field) zapcore.Core {
	// Fields are attached at log time
	return c
}

// Check determines whether the supplied Entry should be logged
func (c *OTLPCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

// Write serializes the Entry and any Fields into the OTLP buffer
func (c *OTLPCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	record := LogRecord{
		Timestamp:         ent.Time.UnixNano(),
		ObservedTimestamp: time.Now().UnixNano(),
		SeverityNumber:    zapLevelToOTLP(ent.Level),
		SeverityText:      ent.Level.String(),
		Body:              map[string]string{"stringValue": ent.Message},
	}

	attrs := make([]KeyValue, 0, len(fields)+1)

	if ent.Caller.Defined {
		attrs = append(attrs, KeyValue{
			Key:   "caller",
			Value: map[string]string{"stringValue": ent.Caller.String()},
		})
	}

	for _, f := range fields {
		kv := fieldToKeyValue(f)
		if kv.Key != "" {
			if f.Key == "trace_id" {
				record.TraceID = f.String
				continue
			}
			if f.Key == "span_id" {
				record.SpanID = f.String
				continue
			}
			attrs = append(attrs, kv)
		}
	}

	record.Attributes = attrs

	c.bufferMu.Lock()
	c.buffer = append(c.buffer, record)
	shouldFlush := len(c.buffer) >= c.batchSize
	c.bufferMu.Unlock()

	if shouldFlush {
		go c.flush()
	}

	return nil
}

// Sync flushes buffered logs
func (c *OTLPCore) Sync() error {
	c.flush()
	return nil
}

// Close stops the background flush loop
func (c *OTLPCore) Close() error {
	close(c.stopChan)
	c.wg.Wait()
	c.flush()
	return nil
}

func (c *OTLPCore) flushLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.batchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.flush()
		case <-c.stopChan:
			return
		}
	}
}

// flush sends buffered logs to the collector
func (c *OTLPCore) flush() {
	c.bufferMu.Lock()
	if len(c.buffer) == 0 {
		c.bufferMu.Unlock()
		return
	}

	records := make([]LogRecord, len(c.buffer))
	copy(records, c.buffer)
	c.buffer = c.buffer[:0]
	c.bufferMu.Unlock()

	payload := OTLPLogPayload{
		ResourceLogs: []ResourceLogs{
			{
				Resource: Resource{
					Attributes: []KeyValue{
						{Key: "service.name", Value: map[string]string{"stringValue": c.serviceName}},
						{Key: "service.namespace", Value: map[string]string{"stringValue": "event-calendar"}},
					},
				},
				ScopeLogs: []ScopeLogs{
					{
						Scope: Scope{
							Name:    "go.uber.org/zap",
							Version: "1.27.0",
						},
						LogRecords: records,
					},
				},
			},
		},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		fmt.Printf("logger: failed to marshal OTLP payload: %v\n", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		fmt.Printf("logger: failed to create OTLP request: %v\n", err)
		return
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		// Export failures never block the application
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		fmt.Printf("logger: OTLP export failed with status %d\n", resp.StatusCode)
	}
}

// zapLevelToOTLP converts a zap log level to an OTLP severity number
func zapLevelToOTLP(level zapcore.Level) int32 {
	switch level {
	case zapcore.DebugLevel:
		return 5 // DEBUG
	case zapcore.InfoLevel:
		return 9 // INFO
	case zapcore.WarnLevel:
		return 13 // WARN
	case zapcore.ErrorLevel:
		return 17 // ERROR
	case zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return 21 // FATAL
	default:
		return 0 // UNSPECIFIED
	}
}

// fieldToKeyValue converts a zap field to an OTLP KeyValue
func fieldToKeyValue(f zapcore.Field) KeyValue {
	switch f.Type {
	case zapcore.StringType:
		return KeyValue{Key: f.Key, Value: map[string]string{"stringValue": f.String}}
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type:
		return KeyValue{Key: f.Key, Value: map[string]int64{"intValue": f.Integer}}
	case zapcore.Uint64Type, zapcore.Uint32Type, zapcore.Uint16Type, zapcore.Uint8Type:
		return KeyValue{Key: f.Key, Value: map[string]uint64{"intValue": uint64(f.Integer)}}
	case zapcore.Float64Type, zapcore.Float32Type:
		return KeyValue{Key: f.Key, Value: map[string]float64{"doubleValue": float64(f.Integer)}}
	case zapcore.BoolType:
		return KeyValue{Key: f.Key, Value: map[string]bool{"boolValue": f.Integer == 1}}
	case zapcore.DurationType:
		return KeyValue{Key: f.Key, Value: map[string]string{"stringValue": time.Duration(f.Integer).String()}}
	case zapcore.TimeType:
		if f.Interface != nil {
			return KeyValue{Key: f.Key, Value: map[string]string{"stringValue": time.Unix(0, f.Integer).In(f.Interface.(*time.Location)).Format(time.RFC3339Nano)}}
		}
		return KeyValue{Key: f.Key, Value: map[string]string{"stringValue": time.Unix(0, f.Integer).Format(time.RFC3339Nano)}}
	case zapcore.ErrorType:
		if f.Interface != nil {
			return KeyValue{Key: f.Key, Value: map[string]string{"stringValue": f.Interface.(error).Error()}}
		}
		return KeyValue{}
	case zapcore.StringerType:
		if f.Interface != nil {
			return KeyValue{Key: f.Key, Value: map[string]string{"stringValue": f.Interface.(fmt.Stringer).String()}}
		}
		return KeyValue{}
	default:
		if f.Interface != nil {
			if data, err := json.Marshal(f.Interface); err == nil {
				return KeyValue{Key: f.Key, Value: map[string]string{"stringValue": string(data)}}
			}
		}
		return KeyValue{}
	}
}

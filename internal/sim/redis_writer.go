package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"v2x-sim/internal/telemetry"
	"v2x-sim/internal/threat"
)

// redisClient is the subset of *redis.Client used by RedisWriter.
type redisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	GeoAdd(ctx context.Context, key string, geoLocation ...*redis.GeoLocation) *redis.IntCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// stateTTL bounds how long the live state hash survives without updates.
const stateTTL = 30 * time.Second

// RedisWriter pushes live network state to Redis: vehicle positions into a
// geo set, the latest network state into a hash, and threats and commands
// onto pub/sub channels.
type RedisWriter struct {
	client    redisClient
	clusterID string
	closer    func() error
}

// NewRedisWriter connects to the Redis instance at url
// (redis://host:port/db) and verifies the connection.
func NewRedisWriter(ctx context.Context, url, clusterID string) (*RedisWriter, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisWriter{client: client, clusterID: clusterID, closer: client.Close}, nil
}

func (w *RedisWriter) key(suffix string) string {
	return fmt.Sprintf("v2x:%s:%s", w.clusterID, suffix)
}

// Write records a single vehicle position.
func (w *RedisWriter) Write(row telemetry.TelemetryRow) error {
	return w.WriteBatch([]telemetry.TelemetryRow{row})
}

// WriteBatch records vehicle positions in one GEOADD.
func (w *RedisWriter) WriteBatch(rows []telemetry.TelemetryRow) error {
	if len(rows) == 0 {
		return nil
	}
	locs := make([]*redis.GeoLocation, 0, len(rows))
	for _, r := range rows {
		locs = append(locs, &redis.GeoLocation{Name: r.VehicleID, Longitude: r.Lng, Latitude: r.Lat})
	}
	return w.client.GeoAdd(context.Background(), w.key("vehicles"), locs...).Err()
}

// WriteThreat publishes the threat as JSON.
func (w *RedisWriter) WriteThreat(t threat.Threat) error {
	return w.publish(w.key("threats"), t)
}

// WriteCommand publishes the command event as JSON.
func (w *RedisWriter) WriteCommand(ev telemetry.CommandEventRow) error {
	return w.publish(w.key("commands"), ev)
}

func (w *RedisWriter) publish(channel string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", channel, err)
	}
	return w.client.Publish(context.Background(), channel, payload).Err()
}

// WriteState stores the latest network state in a hash that expires when
// the simulator stops updating it.
func (w *RedisWriter) WriteState(row telemetry.NetworkStateRow) error {
	ctx := context.Background()
	key := w.key("state")
	fields := map[string]interface{}{
		"tick":               row.Tick,
		"running":            row.Running,
		"total_vehicles":     row.TotalVehicles,
		"active_rsus":        row.ActiveRSUs,
		"threats_detected":   row.ThreatsDetected,
		"compromised_nodes":  row.CompromisedNodes,
		"network_health":     row.NetworkHealth,
		"messages_sent":      row.MessagesSent,
		"messages_received":  row.MessagesReceived,
		"average_latency_ms": row.AverageLatencyMs,
		"ts":                 row.Timestamp.UnixMilli(),
	}
	if err := w.client.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("hset state: %w", err)
	}
	return w.client.Expire(ctx, key, stateTTL).Err()
}

// Close releases the underlying connection pool.
func (w *RedisWriter) Close() error {
	if w.closer == nil {
		return nil
	}
	return w.closer()
}

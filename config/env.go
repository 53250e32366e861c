package config

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultBackendURL       = "http://localhost:5001"
	defaultBackendTimeout   = "30s"
	defaultRedisAddr        = "localhost:6379"
	defaultAppPort          = "8080"
	defaultAppEnv           = "local"
	defaultSessionTTL       = "2h"
	defaultSessionCookie    = "pos_session"
	defaultPhoneMinDigits   = "10"
	defaultLoginRateLimit   = "20"
	defaultMongoDatabase    = "possrv"
	defaultMongoCollection  = "logs"
	defaultShutdownDeadline = "15s"
)

var (
	loadOnce sync.Once
	loadErr  error

	mu     sync.RWMutex
	values = defaultValues()
)

// Load reads config/app.json, config/app.yaml and .env once. Process
// environment variables override file values.
func Load() error {
	loadOnce.Do(func() {
		loadErr = loadFromFiles("config/app.json", "config/app.yaml", ".env")
	})
	return loadErr
}

func defaultValues() map[string]string {
	return map[string]string{
		"APP_PORT":                defaultAppPort,
		"APP_ENV":                 defaultAppEnv,
		"BACKEND_URL":             defaultBackendURL,
		"BACKEND_TIMEOUT":         defaultBackendTimeout,
		"REDIS_ADDR":              defaultRedisAddr,
		"REDIS_PASSWORD":          "",
		"SESSION_TTL":             defaultSessionTTL,
		"SESSION_COOKIE":          defaultSessionCookie,
		"PHONE_LOOKUP_MIN_DIGITS": defaultPhoneMinDigits,
		"LOGIN_RATE_LIMIT":        defaultLoginRateLimit,
		"LOG_MONGO_URI":           "",
		"LOG_MONGO_DB":            defaultMongoDatabase,
		"LOG_MONGO_COLLECTION":    defaultMongoCollection,
		"SHUTDOWN_TIMEOUT":        defaultShutdownDeadline,
		"APP_KEY":                 "",
	}
}

func AppPort() string {
	_ = Load()
	return get("APP_PORT", defaultAppPort)
}

func AppEnv() string {
	_ = Load()
	return get("APP_ENV", defaultAppEnv)
}

// BackendURL is the base address of the sales backend, without a trailing slash.
func BackendURL() string {
	_ = Load()
	return strings.TrimRight(get("BACKEND_URL", defaultBackendURL), "/")
}

func BackendTimeout() time.Duration {
	_ = Load()
	return duration("BACKEND_TIMEOUT", defaultBackendTimeout)
}

func RedisAddr() string {
	_ = Load()
	return get("REDIS_ADDR", defaultRedisAddr)
}

func RedisPassword() string {
	_ = Load()
	return get("REDIS_PASSWORD", "")
}

func SessionTTL() time.Duration {
	_ = Load()
	return duration("SESSION_TTL", defaultSessionTTL)
}

func SessionCookie() string {
	_ = Load()
	return get("SESSION_COOKIE", defaultSessionCookie)
}

// PhoneLookupMinDigits is the phone length at which customer lookups start.
func PhoneLookupMinDigits() int {
	_ = Load()
	return integer("PHONE_LOOKUP_MIN_DIGITS", defaultPhoneMinDigits)
}

// LoginRateLimit is the number of login attempts allowed per client per minute.
func LoginRateLimit() int {
	_ = Load()
	return integer("LOGIN_RATE_LIMIT", defaultLoginRateLimit)
}

func ShutdownTimeout() time.Duration {
	_ = Load()
	return duration("SHUTDOWN_TIMEOUT", defaultShutdownDeadline)
}

// AppKey seals terminal records in the cache. Empty stores them as plain JSON.
func AppKey() string {
	_ = Load()
	return get("APP_KEY", "")
}

// ── Log sink ─────────────────────────────────────────────────────────────────

func LogMongoURI() string        { _ = Load(); return get("LOG_MONGO_URI", "") }
func LogMongoDatabase() string   { _ = Load(); return get("LOG_MONGO_DB", defaultMongoDatabase) }
func LogMongoCollection() string { _ = Load(); return get("LOG_MONGO_COLLECTION", defaultMongoCollection) }

func loadFromFiles(jsonPath, yamlPath, envPath string) error {
	loaded := defaultValues()

	if err := mergeJSONConfig(jsonPath, loaded); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
	}

	if err := mergeYAMLConfig(yamlPath, loaded); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
	}

	if err := mergeDotEnv(envPath, loaded); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
	}

	mergeEnviron(loaded)

	mu.Lock()
	values = loaded
	mu.Unlock()

	return nil
}

func mergeJSONConfig(path string, out map[string]string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var raw map[string]interface{}
	if err := json.NewDecoder(file).Decode(&raw); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	mergeRaw(raw, out)
	return nil
}

func mergeYAMLConfig(path string, out map[string]string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	mergeRaw(raw, out)
	return nil
}

// mergeRaw copies scalar values; nested objects are ignored.
func mergeRaw(raw map[string]interface{}, out map[string]string) {
	for key, val := range raw {
		var s string
		switch v := val.(type) {
		case string:
			s = v
		case int, int64, float64, bool:
			s = fmt.Sprint(v)
		default:
			continue
		}

		k := strings.ToUpper(strings.TrimSpace(key))
		if k == "" {
			continue
		}
		out[k] = strings.TrimSpace(s)
	}
}

func mergeDotEnv(path string, out map[string]string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		idx := strings.IndexByte(line, '=')
		if idx <= 0 {
			continue
		}

		key := strings.ToUpper(strings.TrimSpace(line[:idx]))
		value := strings.TrimSpace(line[idx+1:])
		value = strings.Trim(value, `"'`)
		if key == "" {
			continue
		}
		out[key] = value
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	return nil
}

// mergeEnviron lets the process environment win over files for known keys.
func mergeEnviron(out map[string]string) {
	for key := range defaultValues() {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			out[key] = strings.TrimSpace(v)
		}
	}
}

func get(key, fallback string) string {
	mu.RLock()
	defer mu.RUnlock()

	if value := strings.TrimSpace(values[key]); value != "" {
		return value
	}

	return fallback
}

func duration(key, fallback string) time.Duration {
	d, err := time.ParseDuration(get(key, fallback))
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func integer(key, fallback string) int {
	n, err := strconv.Atoi(get(key, fallback))
	if err != nil || n <= 0 {
		n, _ = strconv.Atoi(fallback)
	}
	return n
}

// Get reads any config key by name with an optional fallback.
func Get(key, fallback string) string {
	_ = Load()
	return get(key, fallback)
}

// Set overrides a single key at runtime. Intended for tests and CLI flags.
func Set(key, value string) {
	_ = Load()
	mu.Lock()
	defer mu.Unlock()
	values[strings.ToUpper(key)] = value
}

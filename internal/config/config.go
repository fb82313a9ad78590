package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// MoMoのサンドボックス値（prod以外で未設定のときに使う）
const (
	momoSandboxPartnerCode   = "MOMO"
	momoSandboxAccessKey     = "F8BBA842ECF85"
	momoSandboxSecretKey     = "K951B6PE1waDMi640xX08PD3vg6EkVlz"
	momoSandboxEndpoint      = "https://test-payment.momo.vn/v2/gateway/api/create"
	momoSandboxQueryEndpoint = "https://test-payment.momo.vn/v2/gateway/api/query"
)

// MoMo決済の設定
type MoMoConfig struct {
	PartnerCode   string
	AccessKey     string
	SecretKey     string
	Endpoint      string // 決済作成
	QueryEndpoint string // 状態照会
	RedirectURL   string // 決済後にユーザーを戻すURL
	IPNURL        string // サーバー間コールバック
	Timeout       time.Duration
}

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	DatabaseURL      string // 指定があればPOSTGRES_*より優先
	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5433）
	PostgresSSLMode  string // disable/require

	JWTSecret string // JWT署名シークレット
	JWTTTL    time.Duration

	GoEnv    string // dev/prod
	FEURL    string // フロントURL（CORS）
	LogLevel string

	MoMo MoMoConfig

	RedisAddr    string   // 空ならコールバックの重複排除はメモリ内
	KafkaBrokers []string // 空ならイベントは捨てる

	SoldCountInterval time.Duration // 0なら1回だけ
}

func (c Config) IsProd() bool {
	return c.GoEnv == "prod"
}

// Loadは環境変数
func Load() (Config, error) {
	cfg := Config{
		Port: getenvDefault("PORT", "8080"),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresSSLMode:  getenvDefault("POSTGRES_SSLMODE", "disable"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		GoEnv:    os.Getenv("GO_ENV"),
		FEURL:    os.Getenv("FE_URL"),
		LogLevel: getenvDefault("LOG_LEVEL", "info"),

		RedisAddr:    os.Getenv("REDIS_ADDR"),
		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
	}

	//必須チェック
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.GoEnv == "" {
		return Config{}, fmt.Errorf("GO_ENV is required")
	}

	// DATABASE_URLが無いときだけPOSTGRES_*を見る
	if cfg.DatabaseURL == "" {
		pgPort, err := mustAtoi("POSTGRES_PORT")
		if err != nil {
			return Config{}, err
		}
		cfg.PostgresPort = pgPort

		for key, v := range map[string]string{
			"POSTGRES_USER":     cfg.PostgresUser,
			"POSTGRES_PASSWORD": cfg.PostgresPassword,
			"POSTGRES_DB":       cfg.PostgresDB,
			"POSTGRES_HOST":     cfg.PostgresHost,
		} {
			if v == "" {
				return Config{}, fmt.Errorf("%s is required", key)
			}
		}
	}

	ttl, err := durationDefault("JWT_TTL", 24*time.Hour)
	if err != nil {
		return Config{}, err
	}
	cfg.JWTTTL = ttl

	interval, err := durationDefault("SOLD_COUNT_INTERVAL", 0)
	if err != nil {
		return Config{}, err
	}
	cfg.SoldCountInterval = interval

	momo, err := loadMoMo(cfg.IsProd(), cfg.FEURL)
	if err != nil {
		return Config{}, err
	}
	cfg.MoMo = momo

	return cfg, nil
}

func loadMoMo(prod bool, feURL string) (MoMoConfig, error) {
	m := MoMoConfig{
		PartnerCode:   os.Getenv("MOMO_PARTNER_CODE"),
		AccessKey:     os.Getenv("MOMO_ACCESS_KEY"),
		SecretKey:     os.Getenv("MOMO_SECRET_KEY"),
		Endpoint:      os.Getenv("MOMO_ENDPOINT"),
		QueryEndpoint: os.Getenv("MOMO_QUERY_ENDPOINT"),
		RedirectURL:   os.Getenv("MOMO_REDIRECT_URL"),
		IPNURL:        os.Getenv("MOMO_IPN_URL"),
	}

	secs := 30
	if v := os.Getenv("MOMO_TIMEOUT_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return MoMoConfig{}, fmt.Errorf("MOMO_TIMEOUT_SECONDS must be positive number")
		}
		secs = n
	}
	m.Timeout = time.Duration(secs) * time.Second

	if prod {
		// 本番は鍵の指定が必須
		if m.PartnerCode == "" || m.AccessKey == "" || m.SecretKey == "" {
			return MoMoConfig{}, fmt.Errorf("MOMO_PARTNER_CODE, MOMO_ACCESS_KEY and MOMO_SECRET_KEY are required in prod")
		}
		if m.Endpoint == "" || m.QueryEndpoint == "" {
			return MoMoConfig{}, fmt.Errorf("MOMO_ENDPOINT and MOMO_QUERY_ENDPOINT are required in prod")
		}
	} else {
		m.PartnerCode = orDefault(m.PartnerCode, momoSandboxPartnerCode)
		m.AccessKey = orDefault(m.AccessKey, momoSandboxAccessKey)
		m.SecretKey = orDefault(m.SecretKey, momoSandboxSecretKey)
		m.Endpoint = orDefault(m.Endpoint, momoSandboxEndpoint)
		m.QueryEndpoint = orDefault(m.QueryEndpoint, momoSandboxQueryEndpoint)
	}

	if m.RedirectURL == "" && feURL != "" {
		m.RedirectURL = strings.TrimRight(feURL, "/") + "/payment/result"
	}

	return m, nil
}

func mustAtoi(key string) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func durationDefault(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be duration: %w", key, err)
	}
	return d, nil
}

func getenvDefault(key, def string) string {
	return orDefault(os.Getenv(key), def)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// カンマ区切り
func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

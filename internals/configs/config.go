package configs

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	JWTSecret        string
	JWTRefreshSecret string
	GoogleClientID   string

	// Conf holds the resolved settings after LoadEnv.
	Conf = Defaults()

	v *viper.Viper
)

type Config struct {
	AppName     string
	AppEnv      string
	Port        string
	AppTimezone string

	DBDriver     string
	DBHost       string
	DBPort       string
	DBUser       string
	DBPassword   string
	DBName       string
	DBSSLMode    string
	DBSQLitePath string

	AccessTokenTTL        time.Duration
	RefreshTokenTTL       time.Duration
	LoginChallengeTTL     time.Duration
	OTPTTL                time.Duration
	OTPMaxAttempts        int
	AuthOTPEnabled        bool
	SessionIdleTimeout    time.Duration
	TokenBlacklistTTLDays int

	MailDriver      string
	SMTPHost        string
	SMTPPort        int
	SMTPUsername    string
	SMTPPassword    string
	SendGridAPIKey  string
	MailFromAddress string
	MailFromName    string

	GeminiAPIKey string
	GeminiModel  string

	CentralLoginValidateURL string

	StorageDriver        string
	StorageLocalDir      string
	StoragePublicBaseURL string
	OSSEndpoint          string
	OSSAccessKey         string
	OSSSecretKey         string
	OSSBucket            string
	S3Region             string
	S3Bucket             string
	S3AccessKey          string
	S3SecretKey          string

	CORSAllowOrigins  string
	CronEnabled       bool
	EventReminderLead time.Duration
	LateGracePeriod   time.Duration

	LogLevel  string
	LogFormat string
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func setDefaults(vp *viper.Viper) {
	vp.SetDefault("APP_NAME", "LGU DrillHub")
	vp.SetDefault("APP_ENV", "development")
	vp.SetDefault("PORT", "3000")
	vp.SetDefault("APP_TIMEZONE", "Asia/Manila")

	vp.SetDefault("DB_DRIVER", "postgres")
	vp.SetDefault("DB_HOST", "localhost")
	vp.SetDefault("DB_PORT", "5432")
	vp.SetDefault("DB_SSLMODE", "disable")
	vp.SetDefault("DB_SQLITE_PATH", "drillhub.db")

	vp.SetDefault("ACCESS_TOKEN_TTL", 24*time.Hour)
	vp.SetDefault("REFRESH_TOKEN_TTL", 7*24*time.Hour)
	vp.SetDefault("LOGIN_CHALLENGE_TTL", 10*time.Minute)
	vp.SetDefault("OTP_TTL", 10*time.Minute)
	vp.SetDefault("OTP_MAX_ATTEMPTS", 5)
	vp.SetDefault("AUTH_OTP_ENABLED", true)
	vp.SetDefault("SESSION_IDLE_TIMEOUT", 30*time.Minute)
	vp.SetDefault("TOKEN_BLACKLIST_TTL_DAYS", 7)

	vp.SetDefault("MAIL_DRIVER", "console")
	vp.SetDefault("SMTP_PORT", 587)
	vp.SetDefault("MAIL_FROM_ADDRESS", "noreply@localhost")
	vp.SetDefault("MAIL_FROM_NAME", "LGU DrillHub")

	vp.SetDefault("GEMINI_MODEL", "gemini-2.0-flash")

	vp.SetDefault("STORAGE_DRIVER", "local")
	vp.SetDefault("STORAGE_LOCAL_DIR", "./uploads")
	vp.SetDefault("STORAGE_PUBLIC_BASE_URL", "/uploads")

	vp.SetDefault("CORS_ALLOW_ORIGINS", "http://localhost:5173")
	vp.SetDefault("CRON_ENABLED", true)
	vp.SetDefault("EVENT_REMINDER_LEAD", 24*time.Hour)
	vp.SetDefault("ATTENDANCE_LATE_GRACE", 15*time.Minute)

	vp.SetDefault("LOG_LEVEL", "info")
	vp.SetDefault("LOG_FORMAT", "json")
}

// Defaults returns the configuration without reading the environment.
func Defaults() Config {
	vp := viper.New()
	setDefaults(vp)
	return fromViper(vp)
}

func fromViper(vp *viper.Viper) Config {
	return Config{
		AppName: vp.GetString("APP_NAME"),
		AppEnv:  vp.GetString("APP_ENV"),
		Port:    vp.GetString("PORT"),

		AppTimezone: vp.GetString("APP_TIMEZONE"),

		DBDriver:     strings.ToLower(vp.GetString("DB_DRIVER")),
		DBHost:       vp.GetString("DB_HOST"),
		DBPort:       vp.GetString("DB_PORT"),
		DBUser:       vp.GetString("DB_USER"),
		DBPassword:   vp.GetString("DB_PASSWORD"),
		DBName:       vp.GetString("DB_NAME"),
		DBSSLMode:    vp.GetString("DB_SSLMODE"),
		DBSQLitePath: vp.GetString("DB_SQLITE_PATH"),

		AccessTokenTTL:        vp.GetDuration("ACCESS_TOKEN_TTL"),
		RefreshTokenTTL:       vp.GetDuration("REFRESH_TOKEN_TTL"),
		LoginChallengeTTL:     vp.GetDuration("LOGIN_CHALLENGE_TTL"),
		OTPTTL:                vp.GetDuration("OTP_TTL"),
		OTPMaxAttempts:        vp.GetInt("OTP_MAX_ATTEMPTS"),
		AuthOTPEnabled:        vp.GetBool("AUTH_OTP_ENABLED"),
		SessionIdleTimeout:    vp.GetDuration("SESSION_IDLE_TIMEOUT"),
		TokenBlacklistTTLDays: vp.GetInt("TOKEN_BLACKLIST_TTL_DAYS"),

		MailDriver:      strings.ToLower(vp.GetString("MAIL_DRIVER")),
		SMTPHost:        vp.GetString("SMTP_HOST"),
		SMTPPort:        vp.GetInt("SMTP_PORT"),
		SMTPUsername:    vp.GetString("SMTP_USERNAME"),
		SMTPPassword:    vp.GetString("SMTP_PASSWORD"),
		SendGridAPIKey:  vp.GetString("SENDGRID_API_KEY"),
		MailFromAddress: vp.GetString("MAIL_FROM_ADDRESS"),
		MailFromName:    vp.GetString("MAIL_FROM_NAME"),

		GeminiAPIKey: vp.GetString("GEMINI_API_KEY"),
		GeminiModel:  vp.GetString("GEMINI_MODEL"),

		CentralLoginValidateURL: vp.GetString("CENTRAL_LOGIN_VALIDATE_URL"),

		StorageDriver:        strings.ToLower(vp.GetString("STORAGE_DRIVER")),
		StorageLocalDir:      vp.GetString("STORAGE_LOCAL_DIR"),
		StoragePublicBaseURL: vp.GetString("STORAGE_PUBLIC_BASE_URL"),
		OSSEndpoint:          vp.GetString("ALI_OSS_ENDPOINT"),
		OSSAccessKey:         vp.GetString("ALI_OSS_ACCESS_KEY"),
		OSSSecretKey:         vp.GetString("ALI_OSS_SECRET_KEY"),
		OSSBucket:            vp.GetString("ALI_OSS_BUCKET"),
		S3Region:             vp.GetString("AWS_S3_REGION"),
		S3Bucket:             vp.GetString("AWS_S3_BUCKET"),
		S3AccessKey:          vp.GetString("AWS_S3_ACCESS_KEY"),
		S3SecretKey:          vp.GetString("AWS_S3_SECRET_KEY"),

		CORSAllowOrigins:  vp.GetString("CORS_ALLOW_ORIGINS"),
		CronEnabled:       vp.GetBool("CRON_ENABLED"),
		EventReminderLead: vp.GetDuration("EVENT_REMINDER_LEAD"),
		LateGracePeriod:   vp.GetDuration("ATTENDANCE_LATE_GRACE"),

		LogLevel:  strings.ToLower(vp.GetString("LOG_LEVEL")),
		LogFormat: strings.ToLower(vp.GetString("LOG_FORMAT")),
	}
}

// =======================
// ENV LOADER
// =======================
func LoadEnv() Config {
	if os.Getenv("RAILWAY_ENVIRONMENT") == "" {
		if err := godotenv.Load(); err != nil {
			log.Println("no .env file found, using system environment")
		}
	}

	v = viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)
	v.AutomaticEnv()

	Conf = fromViper(v)
	JWTSecret = v.GetString("JWT_SECRET")
	JWTRefreshSecret = v.GetString("JWT_REFRESH_SECRET")
	GoogleClientID = v.GetString("GOOGLE_CLIENT_ID")

	if JWTSecret == "" {
		log.Println("JWT_SECRET is not set")
	}
	if JWTRefreshSecret == "" {
		log.Println("JWT_REFRESH_SECRET is not set")
	}
	return Conf
}

func GetEnv(key string, defaultValue ...string) string {
	if v != nil && v.IsSet(key) {
		return v.GetString(key)
	}
	value, exists := os.LookupEnv(key)
	if !exists && len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return value
}

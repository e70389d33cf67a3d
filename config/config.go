// server/config/config.go
package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig
	Mongo   MongoConfig
	JWT     JWTConfig
	S3      S3Config
	OCR     OCRConfig
	CEP     CEPConfig
	Intake  IntakeConfig
	Courier CourierConfig
}

type ServerConfig struct {
	Port string
}

type MongoConfig struct {
	URI    string
	DBName string
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type S3Config struct {
	Bucket           string
	Region           string
	AccessKeyID      string
	SecretAccessKey  string
	CloudFrontDomain string
}

type OCRConfig struct {
	BaseURL string
	Model   string
	APIKey  string
}

type CEPConfig struct {
	BaseURL string
}

type IntakeConfig struct {
	InterCallDelay time.Duration
	MaxRetries     int
}

type CourierConfig struct {
	Name    string
	PINHash string
}

func LoadConfig() (*Config, error) {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("MONGO_DB_NAME", "rl_express")
	viper.SetDefault("JWT_EXPIRATION", "72h")
	viper.SetDefault("OCR_BASE_URL", "https://generativelanguage.googleapis.com/v1beta")
	viper.SetDefault("OCR_MODEL", "gemini-2.0-flash")
	viper.SetDefault("CEP_BASE_URL", "https://viacep.com.br")
	viper.SetDefault("INTAKE_INTER_CALL_DELAY", "1s")
	viper.SetDefault("INTAKE_MAX_RETRIES", 3)
	viper.SetDefault("COURIER_NAME", "RL Express")

	viper.AutomaticEnv()

	viper.BindEnv("PORT")
	viper.BindEnv("MONGO_URI")
	viper.BindEnv("MONGO_DB_NAME")
	viper.BindEnv("JWT_SECRET")
	viper.BindEnv("JWT_EXPIRATION")
	viper.BindEnv("S3_BUCKET")
	viper.BindEnv("S3_REGION")
	viper.BindEnv("AWS_ACCESS_KEY_ID")
	viper.BindEnv("AWS_SECRET_ACCESS_KEY")
	viper.BindEnv("CLOUDFRONT_DOMAIN")
	viper.BindEnv("OCR_BASE_URL")
	viper.BindEnv("OCR_MODEL")
	viper.BindEnv("OCR_API_KEY")
	viper.BindEnv("CEP_BASE_URL")
	viper.BindEnv("INTAKE_INTER_CALL_DELAY")
	viper.BindEnv("INTAKE_MAX_RETRIES")
	viper.BindEnv("COURIER_NAME")
	viper.BindEnv("COURIER_PIN_HASH")

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetString("PORT"),
		},
		Mongo: MongoConfig{
			URI:    viper.GetString("MONGO_URI"),
			DBName: viper.GetString("MONGO_DB_NAME"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("JWT_SECRET"),
			Expiration: viper.GetDuration("JWT_EXPIRATION"),
		},
		S3: S3Config{
			Bucket:           viper.GetString("S3_BUCKET"),
			Region:           viper.GetString("S3_REGION"),
			AccessKeyID:      viper.GetString("AWS_ACCESS_KEY_ID"),
			SecretAccessKey:  viper.GetString("AWS_SECRET_ACCESS_KEY"),
			CloudFrontDomain: viper.GetString("CLOUDFRONT_DOMAIN"),
		},
		OCR: OCRConfig{
			BaseURL: viper.GetString("OCR_BASE_URL"),
			Model:   viper.GetString("OCR_MODEL"),
			APIKey:  viper.GetString("OCR_API_KEY"),
		},
		CEP: CEPConfig{
			BaseURL: viper.GetString("CEP_BASE_URL"),
		},
		Intake: IntakeConfig{
			InterCallDelay: viper.GetDuration("INTAKE_INTER_CALL_DELAY"),
			MaxRetries:     viper.GetInt("INTAKE_MAX_RETRIES"),
		},
		Courier: CourierConfig{
			Name:    viper.GetString("COURIER_NAME"),
			PINHash: viper.GetString("COURIER_PIN_HASH"),
		},
	}

	return cfg, nil
}

package config

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Settings struct {
	MariaDBDSN      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ServerPort      int

	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSRegion          string

	SiteName     string
	SiteURL      string
	MediaRoot    string
	MediaBaseURL string

	BucketName                string
	BucketNameStrategy        string
	PreserveBucketPermissions bool
	UseCloudFront             bool
	KeyPrefix                 string

	ResizeMaxWidth         int
	ResizeMaxHeight        int
	CompressImages         bool
	CompressionService     string
	CompressionQuality     int
	TinyPNGAPIKey          string
	UploadRenditions       bool
	DeleteLocalAfterUpload bool
	RenditionWidths        []int

	DrainMaxMessages   int
	ReceiveWaitSeconds int
	DrainInterval      time.Duration
	LogRetentionDays   int

	RedisAddr     string
	RedisPassword string
	JWTSecret     string

	AIAgent           string
	AIModel           string
	OpenAIAPIKey      string
	AnthropicAPIKey   string
	CustomAIEndpoint  string
	CustomAIAPIKey    string
	AISiteBrief       string
	AISkipExistingAlt bool
}

func Load() (*Settings, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found; proceeding with OS environment variables")
	}

	viper.AutomaticEnv()

	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: could not read .env file: %v", err)
	}

	required := []string{
		"MARIADB_DSN",
		"MARIADB_MAX_OPEN_CONN",
		"MARIADB_MAX_IDLE_CONNS",
		"MARIADB_CONN_MAX_LIFETIME",
		"SERVER_PORT",
		"AWS_ACCESS_KEY_ID",
		"AWS_SECRET_ACCESS_KEY",
		"AWS_REGION",
		"SITE_NAME",
		"SITE_URL",
		"MEDIA_ROOT",
		"MEDIA_BASE_URL",
	}
	for _, key := range required {
		if !viper.IsSet(key) {
			return nil, fmt.Errorf("%s is required", key)
		}
	}

	viper.SetDefault("BUCKET_NAME_STRATEGY", "file")
	viper.SetDefault("KEY_PREFIX", "media/")
	viper.SetDefault("COMPRESSION_SERVICE", "native")
	viper.SetDefault("COMPRESSION_QUALITY", 80)
	viper.SetDefault("UPLOAD_RENDITIONS", true)
	viper.SetDefault("RENDITION_WIDTHS", "150,300,768,1024")
	viper.SetDefault("DRAIN_MAX_MESSAGES", 100)
	viper.SetDefault("RECEIVE_WAIT_SECONDS", 20)
	viper.SetDefault("DRAIN_INTERVAL", 60)
	viper.SetDefault("LOG_RETENTION_DAYS", 30)
	viper.SetDefault("AI_AGENT", "openai")
	viper.SetDefault("AI_SKIP_EXISTING_ALT", true)

	widths, err := parseWidths(viper.GetString("RENDITION_WIDTHS"))
	if err != nil {
		return nil, fmt.Errorf("RENDITION_WIDTHS is invalid: %w", err)
	}

	return &Settings{
		MariaDBDSN:      viper.GetString("MARIADB_DSN"),
		MaxOpenConns:    viper.GetInt("MARIADB_MAX_OPEN_CONN"),
		MaxIdleConns:    viper.GetInt("MARIADB_MAX_IDLE_CONNS"),
		ConnMaxLifetime: time.Duration(viper.GetInt("MARIADB_CONN_MAX_LIFETIME")) * time.Second,
		ServerPort:      viper.GetInt("SERVER_PORT"),

		AWSAccessKeyID:     viper.GetString("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: viper.GetString("AWS_SECRET_ACCESS_KEY"),
		AWSRegion:          viper.GetString("AWS_REGION"),

		SiteName:     viper.GetString("SITE_NAME"),
		SiteURL:      viper.GetString("SITE_URL"),
		MediaRoot:    viper.GetString("MEDIA_ROOT"),
		MediaBaseURL: viper.GetString("MEDIA_BASE_URL"),

		BucketName:                viper.GetString("BUCKET_NAME"),
		BucketNameStrategy:        viper.GetString("BUCKET_NAME_STRATEGY"),
		PreserveBucketPermissions: viper.GetBool("PRESERVE_BUCKET_PERMISSIONS"),
		UseCloudFront:             viper.GetBool("USE_CLOUDFRONT"),
		KeyPrefix:                 viper.GetString("KEY_PREFIX"),

		ResizeMaxWidth:         viper.GetInt("RESIZE_MAX_WIDTH"),
		ResizeMaxHeight:        viper.GetInt("RESIZE_MAX_HEIGHT"),
		CompressImages:         viper.GetBool("COMPRESS_IMAGES"),
		CompressionService:     viper.GetString("COMPRESSION_SERVICE"),
		CompressionQuality:     viper.GetInt("COMPRESSION_QUALITY"),
		TinyPNGAPIKey:          viper.GetString("TINYPNG_API_KEY"),
		UploadRenditions:       viper.GetBool("UPLOAD_RENDITIONS"),
		DeleteLocalAfterUpload: viper.GetBool("DELETE_LOCAL_AFTER_UPLOAD"),
		RenditionWidths:        widths,

		DrainMaxMessages:   viper.GetInt("DRAIN_MAX_MESSAGES"),
		ReceiveWaitSeconds: viper.GetInt("RECEIVE_WAIT_SECONDS"),
		DrainInterval:      time.Duration(viper.GetInt("DRAIN_INTERVAL")) * time.Second,
		LogRetentionDays:   viper.GetInt("LOG_RETENTION_DAYS"),

		RedisAddr:     viper.GetString("REDIS_ADDR"),
		RedisPassword: viper.GetString("REDIS_PASSWORD"),
		JWTSecret:     viper.GetString("JWT_SECRET"),

		AIAgent:           viper.GetString("AI_AGENT"),
		AIModel:           viper.GetString("AI_MODEL"),
		OpenAIAPIKey:      viper.GetString("OPENAI_API_KEY"),
		AnthropicAPIKey:   viper.GetString("ANTHROPIC_API_KEY"),
		CustomAIEndpoint:  viper.GetString("CUSTOM_AI_ENDPOINT"),
		CustomAIAPIKey:    viper.GetString("CUSTOM_AI_API_KEY"),
		AISiteBrief:       viper.GetString("AI_SITE_BRIEF"),
		AISkipExistingAlt: viper.GetBool("AI_SKIP_EXISTING_ALT"),
	}, nil
}

// parseWidths turns a comma-separated list like "150,300" into sorted ints.
func parseWidths(csv string) ([]int, error) {
	var widths []int
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		w, err := strconv.Atoi(part)
		if err != nil || w <= 0 {
			return nil, fmt.Errorf("width %q must be a positive integer", part)
		}
		widths = append(widths, w)
	}
	return widths, nil
}

package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"canales-taurinos/internal/logging/types"
)

// Fetch engines a source can be configured with
const (
	EngineHTTP      = "http"
	EngineHeadless  = "headless"
	EngineFirecrawl = "firecrawl"
)

// Failure policies applied when a refresh yields nothing usable
const (
	PolicyPreserve = "preserve"
	PolicyEmpty    = "empty"
)

// Built-in source names
const (
	SourceTransmisiones = "transmisiones"
	SourceServitoro     = "servitoro"
	SourceEscalafon     = "escalafon"
	SourceCronicas      = "cronicas"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Logging      LoggingConfig      `yaml:"logging"`
	Storage      StorageConfig      `yaml:"storage"`
	Redis        RedisConfig        `yaml:"redis"`
	Scraper      ScraperConfig      `yaml:"scraper"`
	Browser      BrowserConfig      `yaml:"browser"`
	Firecrawl    FirecrawlConfig    `yaml:"firecrawl"`
	DigitalOcean DigitalOceanConfig `yaml:"digitalocean"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`
	Regional     RegionalConfig     `yaml:"regional"`

	// Sources is decoded key by key on top of the built-in defaults, see LoadConfig
	Sources map[string]SourceConfig `yaml:"-" validate:"dive"`
}

type ServerConfig struct {
	Port         int           `yaml:"port" validate:"min=1,max=65535"`
	Host         string        `yaml:"host"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	// RequestTimeout bounds every API request, including forced refreshes
	RequestTimeout time.Duration `yaml:"request_timeout"`
	AdminToken     string        `yaml:"admin_token"`
}

type LoggingConfig struct {
	Level    string                `yaml:"level"`
	Format   string                `yaml:"format" validate:"omitempty,oneof=json text"`
	Adapters []types.AdapterConfig `yaml:"adapters"`
}

type StorageConfig struct {
	Backend string `yaml:"backend" validate:"oneof=file redis"`
	DataDir string `yaml:"data_dir" validate:"required"`
}

type RedisConfig struct {
	URL       string        `yaml:"url"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	Timeout   time.Duration `yaml:"timeout"`
	KeyPrefix string        `yaml:"key_prefix"`
}

type ScraperConfig struct {
	UserAgent      string        `yaml:"user_agent"`
	AcceptLanguage string        `yaml:"accept_language"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// RateLimit is requests per minute per domain
	RateLimit        int           `yaml:"rate_limit" validate:"min=1"`
	Burst            int           `yaml:"burst" validate:"min=1"`
	CircuitThreshold int           `yaml:"circuit_threshold"`
	CircuitReset     time.Duration `yaml:"circuit_reset"`
	// CloudflareBypass wraps the plain HTTP transport with browser-like TLS settings
	CloudflareBypass bool   `yaml:"cloudflare_bypass"`
	DebugArtifacts   bool   `yaml:"debug_artifacts"`
	ArtifactsDir     string `yaml:"artifacts_dir"`
	UploadArtifacts  bool   `yaml:"upload_artifacts"`

	// Captcha solving is off unless an API key is set
	Captcha CaptchaConfig `yaml:"captcha"`
}

// CaptchaConfig configures the 2captcha solver used by browser sessions
type CaptchaConfig struct {
	APIKey          string        `yaml:"api_key"`
	Timeout         time.Duration `yaml:"timeout"`
	PollingInterval time.Duration `yaml:"polling_interval"`
}

type BrowserConfig struct {
	Headless       bool          `yaml:"headless"`
	Bin            string        `yaml:"bin"`
	ProfileRoot    string        `yaml:"profile_root"`
	LaunchTimeout  time.Duration `yaml:"launch_timeout"`
	NoSandbox      bool          `yaml:"no_sandbox"`
	BlockResources []string      `yaml:"block_resources"`
	ViewportWidth  int           `yaml:"viewport_width"`
	ViewportHeight int           `yaml:"viewport_height"`
}

type FirecrawlConfig struct {
	APIKey  string        `yaml:"api_key"`
	APIURL  string        `yaml:"api_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type SpacesConfig struct {
	BucketURL       string `yaml:"bucket_url"`
	CDNEndpoint     string `yaml:"cdn_endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	AccessKeySecret string `yaml:"access_key_secret"`
	Region          string `yaml:"region"`
	BucketName      string `yaml:"bucket_name"`
}

type DigitalOceanConfig struct {
	Spaces SpacesConfig `yaml:"spaces"`
}

type SchedulerConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Interval   time.Duration `yaml:"interval"`
	RunTimeout time.Duration `yaml:"run_timeout"`
}

type RegionalConfig struct {
	AmericaKey string `yaml:"america_key"`
	SevillaKey string `yaml:"sevilla_key"`
}

// SourceConfig is the per-source refresh configuration
type SourceConfig struct {
	Disabled             bool          `yaml:"disabled"`
	URL                  string        `yaml:"url" validate:"required,url"`
	Engine               string        `yaml:"engine" validate:"oneof=http headless firecrawl"`
	TTL                  time.Duration `yaml:"ttl" validate:"gt=0"`
	SnapshotFirst        bool          `yaml:"snapshot_first"`
	Scheduled            bool          `yaml:"scheduled"`
	MinScheduledInterval time.Duration `yaml:"min_scheduled_interval"`
	FailurePolicy        string        `yaml:"failure_policy" validate:"oneof=preserve empty"`
	Retry                RetryConfig   `yaml:"retry"`
	Browser              SourceBrowser `yaml:"browser"`
}

type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" validate:"min=1"`
	Delay       time.Duration `yaml:"delay"`
	Backoff     string        `yaml:"backoff" validate:"omitempty,oneof=fixed exponential"`
}

// SourceBrowser holds the headless navigation plan of a source
type SourceBrowser struct {
	Mode                string          `yaml:"mode" validate:"omitempty,oneof=fresh persistent"`
	Wait                string          `yaml:"wait" validate:"omitempty,oneof=load domcontentloaded networkidle"`
	NavigationTimeout   time.Duration   `yaml:"navigation_timeout"`
	Settle              time.Duration   `yaml:"settle"`
	WaitSelector        string          `yaml:"wait_selector"`
	WaitSelectorTimeout time.Duration   `yaml:"wait_selector_timeout"`
	CookieSelectors     []string        `yaml:"cookie_selectors"`
	LoadMore            *LoadMoreConfig `yaml:"load_more"`
}

type LoadMoreConfig struct {
	ItemSelector   string        `yaml:"item_selector" validate:"required"`
	ButtonSelector string        `yaml:"button_selector" validate:"required"`
	ButtonText     string        `yaml:"button_text"`
	Wait           time.Duration `yaml:"wait"`
	MaxClicks      int           `yaml:"max_clicks"`
}

// DefaultSources returns the built-in source table
func DefaultSources() map[string]SourceConfig {
	plain := func(url string, ttl time.Duration) SourceConfig {
		return SourceConfig{
			URL:           url,
			Engine:        EngineHTTP,
			TTL:           ttl,
			FailurePolicy: PolicyPreserve,
			Retry:         RetryConfig{MaxAttempts: 1, Delay: 2 * time.Second, Backoff: "fixed"},
		}
	}

	servitoro := plain("https://www.servitoro.com/es/calendario-taurino", time.Hour)
	servitoro.Engine = EngineHeadless
	servitoro.SnapshotFirst = true
	servitoro.Browser = SourceBrowser{
		Mode:                "persistent",
		Wait:                "networkidle",
		NavigationTimeout:   90 * time.Second,
		WaitSelector:        ".card.evento",
		WaitSelectorTimeout: 30 * time.Second,
		LoadMore: &LoadMoreConfig{
			ItemSelector:   ".card.evento",
			ButtonSelector: "a",
			ButtonText:     "Ver más",
			Wait:           15 * time.Second,
			MaxClicks:      60,
		},
	}

	escalafon := plain("https://www.mundotoro.com/escalafon-toreros", 6*time.Hour)
	escalafon.Engine = EngineHeadless
	escalafon.SnapshotFirst = true
	escalafon.Scheduled = true
	escalafon.MinScheduledInterval = 15 * 24 * time.Hour
	escalafon.FailurePolicy = PolicyEmpty
	escalafon.Browser = SourceBrowser{
		Mode:              "fresh",
		Wait:              "domcontentloaded",
		NavigationTimeout: 90 * time.Second,
		Settle:            5 * time.Second,
		CookieSelectors:   []string{"button.cmplz-btn.cmplz-accept", "button.cmplz-accept"},
	}

	return map[string]SourceConfig{
		SourceTransmisiones: plain("https://elmuletazo.com/agenda-de-toros-en-television/", time.Hour),
		SourceServitoro:     servitoro,
		SourceEscalafon:     escalafon,
		SourceCronicas:      plain("https://desdelcallejon.com/cronicas-de-festejos/", 30*time.Minute),
	}
}

// expandEnvVars expands ${VAR} and $VAR, leaving unknown variables untouched
func expandEnvVars(s string) string {
	braced := regexp.MustCompile(`\$\{([^}]+)\}`)
	s = braced.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})

	bare := regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
	return bare.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[1:]); val != "" {
			return val
		}
		return match
	})
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	config := defaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
		if err == nil {
			if err := config.decodeYAML([]byte(expandEnvVars(string(data)))); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", configPath, err)
			}
		}
	}

	config.loadFromEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func defaultConfig() *Config {
	config := &Config{}

	config.Server.Port = 8080
	config.Server.Host = "0.0.0.0"
	config.Server.ReadTimeout = 30 * time.Second
	config.Server.WriteTimeout = 5 * time.Minute
	config.Server.IdleTimeout = 60 * time.Second
	config.Server.RequestTimeout = 4 * time.Minute

	config.Logging.Level = "info"
	config.Logging.Format = "json"

	config.Storage.Backend = "file"
	config.Storage.DataDir = "data"

	config.Redis.URL = "redis://localhost:6379"
	config.Redis.Timeout = 5 * time.Second
	config.Redis.KeyPrefix = "taurino"

	config.Scraper.UserAgent = defaultUserAgent
	config.Scraper.AcceptLanguage = "es-ES,es;q=0.9,en;q=0.8"
	config.Scraper.RequestTimeout = 30 * time.Second
	config.Scraper.RateLimit = 30
	config.Scraper.Burst = 2
	config.Scraper.CircuitThreshold = 5
	config.Scraper.CircuitReset = 5 * time.Minute
	config.Scraper.CloudflareBypass = true
	config.Scraper.ArtifactsDir = "data/debug"
	config.Scraper.Captcha.Timeout = 120 * time.Second
	config.Scraper.Captcha.PollingInterval = 5 * time.Second

	config.Browser.Headless = true
	config.Browser.ProfileRoot = "tmp"
	config.Browser.LaunchTimeout = 60 * time.Second
	config.Browser.NoSandbox = true
	config.Browser.BlockResources = []string{"image", "stylesheet", "font"}
	config.Browser.ViewportWidth = 1920
	config.Browser.ViewportHeight = 1080

	config.Firecrawl.APIURL = "https://api.firecrawl.dev"
	config.Firecrawl.Timeout = 60 * time.Second

	config.DigitalOcean.Spaces.Region = "ams3"

	config.Scheduler.Enabled = true
	config.Scheduler.Interval = 24 * time.Hour
	config.Scheduler.RunTimeout = 10 * time.Minute

	config.Regional.AmericaKey = "america-events"
	config.Regional.SevillaKey = "sevilla-events"

	config.Sources = DefaultSources()
	return config
}

// decodeYAML decodes everything but sources normally, then decodes each
// sources.<name> block on top of the matching default so partial overrides work.
func (c *Config) decodeYAML(data []byte) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return err
	}

	var raw struct {
		Sources map[string]yaml.Node `yaml:"sources"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}

	for name, node := range raw.Sources {
		sc := c.Sources[name]
		if sc.LoadMore() != nil {
			lm := *sc.Browser.LoadMore
			sc.Browser.LoadMore = &lm
		}
		if sc.FailurePolicy == "" {
			sc.FailurePolicy = PolicyPreserve
		}
		if sc.Retry.MaxAttempts == 0 {
			sc.Retry.MaxAttempts = 1
		}
		if err := node.Decode(&sc); err != nil {
			return fmt.Errorf("source %s: %w", name, err)
		}
		if sc.Engine == "" {
			sc.Engine = EngineHTTP
		}
		if sc.TTL == 0 {
			sc.TTL = time.Hour
		}
		c.Sources[name] = sc
	}
	return nil
}

// LoadMore is a nil-safe accessor for the pagination plan
func (s SourceConfig) LoadMore() *LoadMoreConfig {
	return s.Browser.LoadMore
}

// EnabledSources returns the names of all sources not disabled
func (c *Config) EnabledSources() []string {
	var names []string
	for name, sc := range c.Sources {
		if !sc.Disabled {
			names = append(names, name)
		}
	}
	return names
}

// Validate checks struct tags and cross-field rules
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Storage.Backend == "redis" && c.Redis.URL == "" {
		return fmt.Errorf("invalid configuration: redis.url is required for the redis storage backend")
	}
	for name, sc := range c.Sources {
		if sc.Engine == EngineFirecrawl && c.Firecrawl.APIKey == "" && !sc.Disabled {
			return fmt.Errorf("invalid configuration: source %s uses firecrawl but firecrawl.api_key is empty", name)
		}
		if sc.Scheduled && sc.MinScheduledInterval <= 0 {
			return fmt.Errorf("invalid configuration: source %s is scheduled without min_scheduled_interval", name)
		}
	}
	return nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if host := os.Getenv("HOST"); host != "" {
		c.Server.Host = host
	}

	if token := os.Getenv("ADMIN_TOKEN"); token != "" {
		c.Server.AdminToken = token
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	if logFormat := os.Getenv("LOG_FORMAT"); logFormat != "" {
		c.Logging.Format = logFormat
	}

	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDir = dataDir
	}

	if backend := os.Getenv("STORAGE_BACKEND"); backend != "" {
		c.Storage.Backend = strings.ToLower(backend)
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.URL = redisURL
	}

	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		c.Redis.Password = redisPassword
	}

	if redisDB := os.Getenv("REDIS_DB"); redisDB != "" {
		if db, err := strconv.Atoi(redisDB); err == nil {
			c.Redis.DB = db
		}
	}

	if redisTimeout := os.Getenv("REDIS_TIMEOUT"); redisTimeout != "" {
		if timeout, err := time.ParseDuration(redisTimeout); err == nil {
			c.Redis.Timeout = timeout
		}
	}

	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		c.Browser.Bin = bin
	}

	if headless := os.Getenv("BROWSER_HEADLESS"); headless != "" {
		c.Browser.Headless = parseBool(headless)
	}

	if debug := os.Getenv("SCRAPER_DEBUG_FILES"); debug != "" {
		c.Scraper.DebugArtifacts = parseBool(debug)
	}

	if bypass := os.Getenv("SCRAPER_CLOUDFLARE_BYPASS"); bypass != "" {
		c.Scraper.CloudflareBypass = parseBool(bypass)
	}

	if ua := os.Getenv("SCRAPER_USER_AGENT"); ua != "" {
		c.Scraper.UserAgent = ua
	}

	if captchaAPIKey := os.Getenv("CAPTCHA_API_KEY"); captchaAPIKey != "" {
		c.Scraper.Captcha.APIKey = captchaAPIKey
	}

	if firecrawlAPIKey := os.Getenv("FIRECRAWL_API_KEY"); firecrawlAPIKey != "" {
		c.Firecrawl.APIKey = firecrawlAPIKey
	}

	if firecrawlAPIURL := os.Getenv("FIRECRAWL_API_URL"); firecrawlAPIURL != "" {
		c.Firecrawl.APIURL = firecrawlAPIURL
	}

	if enabled := os.Getenv("SCHEDULER_ENABLED"); enabled != "" {
		c.Scheduler.Enabled = parseBool(enabled)
	}

	// DigitalOcean Spaces, used for debug artifact uploads
	if bucketURL := os.Getenv("BUCKET_URL"); bucketURL != "" {
		c.DigitalOcean.Spaces.BucketURL = bucketURL
	}

	if cdnEndpoint := os.Getenv("BUCKET_CDN_ENDPOINT"); cdnEndpoint != "" {
		c.DigitalOcean.Spaces.CDNEndpoint = cdnEndpoint
	}

	if accessKeyID := os.Getenv("BUCKET_ACCESS_KEY_ID"); accessKeyID != "" {
		c.DigitalOcean.Spaces.AccessKeyID = accessKeyID
	}

	if accessKeySecret := os.Getenv("BUCKET_ACCESS_KEY_SECRET"); accessKeySecret != "" {
		c.DigitalOcean.Spaces.AccessKeySecret = accessKeySecret
	}

	if region := os.Getenv("BUCKET_REGION"); region != "" {
		c.DigitalOcean.Spaces.Region = region
	}

	if bucketName := os.Getenv("BUCKET_NAME"); bucketName != "" {
		c.DigitalOcean.Spaces.BucketName = bucketName
	}
}

func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes"
}

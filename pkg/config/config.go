/*
Package config maps the viper configuration tree onto typed settings for the
retrieval layer. The defaults baked in here mirror the embedded config file
written to ~/.recall-go/config.yml on first run; values read from viper always
win over the struct defaults.
*/
package config

import (
	"time"

	v "github.com/cohesivestack/valgo"
	"github.com/spf13/viper"

	"github.com/theapemachine/recall-go/pkg/errors"
)

/*
HTTPSettings configures the request/response transport against the memory
service REST endpoints.
*/
type HTTPSettings struct {
	Endpoint           string
	APIKey             string
	Timeout            time.Duration
	HealthCheckTimeout time.Duration
}

/*
MCPSettings configures the long-lived subprocess transport. Command is the
full argv used to spawn the child; the first element is the executable.
*/
type MCPSettings struct {
	Command           []string
	WorkingDir        string
	Timeout           time.Duration
	ConnectionTimeout time.Duration
}

/*
MemoryService selects and configures the transports, plus the retrieval
pipeline sizing knobs that travel with the service connection.
*/
type MemoryService struct {
	Protocol           string // "http", "mcp" or "auto"
	PreferredOrder     []string
	FallbackEnabled    bool
	HTTP               HTTPSettings
	MCP                MCPSettings
	MaxMemories        int
	MaxGitMemories     int
	RecentRatio        float64
	RecentTimeWindow   string
	FallbackTimeWindow string
	SourceDisplayMode  string
}

/*
Profile is a named performance budget. EnabledTiers is a subset of
{instant, fast, intensive}; instant is always permitted.
*/
type Profile struct {
	MaxLatency           time.Duration
	EnabledTiers         []string
	BackgroundProcessing bool
	DegradeThreshold     time.Duration
	AutoAdjust           bool
}

type Performance struct {
	DefaultProfile string
	Profiles       map[string]Profile
}

type NaturalTriggers struct {
	Enabled               bool
	TriggerThreshold      float64
	CooldownPeriod        time.Duration
	MaxMemoriesPerTrigger int
}

type PatternDetector struct {
	Sensitivity      float64
	AdaptiveLearning bool
}

type GitAnalysis struct {
	Enabled           bool
	CommitLookback    int
	MaxCommits        int
	ContextWeight     float64
	AdaptiveGitWeight bool
}

type ScoringWeights struct {
	TimeDecay        float64
	TagRelevance     float64
	ContentRelevance float64
	ContentQuality   float64
	RecencyBonus     float64
}

type MemoryScoring struct {
	Weights        ScoringWeights
	TimeDecayRate  float64
	MinRelevance   float64
	AutoCalibrate  bool
	DedupThreshold float64
	DedupMinLength int
}

type Output struct {
	Verbosity            string
	ShowScoringBreakdown bool
	ShowStorageSource    bool
}

type CodeExecution struct {
	Enabled bool
	Timeout time.Duration
}

type Config struct {
	MemoryService   MemoryService
	Performance     Performance
	NaturalTriggers NaturalTriggers
	PatternDetector PatternDetector
	GitAnalysis     GitAnalysis
	MemoryScoring   MemoryScoring
	Output          Output
	CodeExecution   CodeExecution
}

/*
Default returns the configuration used when no config file is present. These
values match the embedded cmd/cfg/config.yml.
*/
func Default() *Config {
	return &Config{
		MemoryService: MemoryService{
			Protocol:        "auto",
			PreferredOrder:  []string{"http", "mcp"},
			FallbackEnabled: true,
			HTTP: HTTPSettings{
				Endpoint:           "https://localhost:8443",
				Timeout:            2 * time.Second,
				HealthCheckTimeout: 3 * time.Second,
			},
			MCP: MCPSettings{
				Command:           []string{"uv", "run", "memory", "server"},
				Timeout:           5 * time.Second,
				ConnectionTimeout: 10 * time.Second,
			},
			MaxMemories:        8,
			MaxGitMemories:     3,
			RecentRatio:        0.6,
			RecentTimeWindow:   "last-week",
			FallbackTimeWindow: "last-month",
			SourceDisplayMode:  "subtle",
		},
		Performance: Performance{
			DefaultProfile: "balanced",
			Profiles:       DefaultProfiles(),
		},
		NaturalTriggers: NaturalTriggers{
			Enabled:               true,
			TriggerThreshold:      0.6,
			CooldownPeriod:        30 * time.Second,
			MaxMemoriesPerTrigger: 5,
		},
		PatternDetector: PatternDetector{
			Sensitivity:      0.7,
			AdaptiveLearning: true,
		},
		GitAnalysis: GitAnalysis{
			Enabled:           true,
			CommitLookback:    14,
			MaxCommits:        20,
			ContextWeight:     1.2,
			AdaptiveGitWeight: true,
		},
		MemoryScoring: MemoryScoring{
			Weights: ScoringWeights{
				TimeDecay:        0.35,
				TagRelevance:     0.25,
				ContentRelevance: 0.2,
				ContentQuality:   0.1,
				RecencyBonus:     0.1,
			},
			TimeDecayRate:  0.05,
			MinRelevance:   0.3,
			AutoCalibrate:  true,
			DedupThreshold: 0.8,
			DedupMinLength: 20,
		},
		Output: Output{
			Verbosity:            "normal",
			ShowScoringBreakdown: false,
			ShowStorageSource:    true,
		},
		CodeExecution: CodeExecution{
			Enabled: false,
			Timeout: 8 * time.Second,
		},
	}
}

/*
DefaultProfiles returns the four recognized performance profiles.
*/
func DefaultProfiles() map[string]Profile {
	return map[string]Profile{
		"speed_focused": {
			MaxLatency:           100 * time.Millisecond,
			EnabledTiers:         []string{"instant"},
			BackgroundProcessing: false,
			DegradeThreshold:     200 * time.Millisecond,
		},
		"balanced": {
			MaxLatency:           200 * time.Millisecond,
			EnabledTiers:         []string{"instant", "fast"},
			BackgroundProcessing: true,
			DegradeThreshold:     400 * time.Millisecond,
		},
		"memory_aware": {
			MaxLatency:           500 * time.Millisecond,
			EnabledTiers:         []string{"instant", "fast", "intensive"},
			BackgroundProcessing: true,
			DegradeThreshold:     1000 * time.Millisecond,
		},
		"adaptive": {
			MaxLatency:           200 * time.Millisecond,
			EnabledTiers:         []string{"instant", "fast"},
			BackgroundProcessing: true,
			DegradeThreshold:     400 * time.Millisecond,
			AutoAdjust:           true,
		},
	}
}

/*
Load reads the configuration tree from the global viper instance, overlaying
any values found there onto the defaults, then validates the result.
*/
func Load() (*Config, error) {
	cfg := Default()
	vip := viper.GetViper()

	overlayString(vip, "memoryService.protocol", &cfg.MemoryService.Protocol)
	if order := vip.GetStringSlice("memoryService.preferredOrder"); len(order) > 0 {
		cfg.MemoryService.PreferredOrder = order
	}
	overlayBool(vip, "memoryService.fallbackEnabled", &cfg.MemoryService.FallbackEnabled)
	overlayString(vip, "memoryService.http.endpoint", &cfg.MemoryService.HTTP.Endpoint)
	overlayString(vip, "memoryService.http.apiKey", &cfg.MemoryService.HTTP.APIKey)
	overlayDuration(vip, "memoryService.http.timeout", &cfg.MemoryService.HTTP.Timeout)
	overlayDuration(vip, "memoryService.http.healthCheckTimeout", &cfg.MemoryService.HTTP.HealthCheckTimeout)
	if cmd := vip.GetStringSlice("memoryService.mcp.command"); len(cmd) > 0 {
		cfg.MemoryService.MCP.Command = cmd
	}
	overlayString(vip, "memoryService.mcp.workingDir", &cfg.MemoryService.MCP.WorkingDir)
	overlayDuration(vip, "memoryService.mcp.timeout", &cfg.MemoryService.MCP.Timeout)
	overlayDuration(vip, "memoryService.mcp.connectionTimeout", &cfg.MemoryService.MCP.ConnectionTimeout)
	overlayInt(vip, "memoryService.maxMemories", &cfg.MemoryService.MaxMemories)
	overlayInt(vip, "memoryService.maxGitMemories", &cfg.MemoryService.MaxGitMemories)
	overlayFloat(vip, "memoryService.recentRatio", &cfg.MemoryService.RecentRatio)
	overlayString(vip, "memoryService.recentTimeWindow", &cfg.MemoryService.RecentTimeWindow)
	overlayString(vip, "memoryService.fallbackTimeWindow", &cfg.MemoryService.FallbackTimeWindow)
	overlayString(vip, "memoryService.sourceDisplayMode", &cfg.MemoryService.SourceDisplayMode)

	overlayString(vip, "performance.defaultProfile", &cfg.Performance.DefaultProfile)

	overlayBool(vip, "naturalTriggers.enabled", &cfg.NaturalTriggers.Enabled)
	overlayFloat(vip, "naturalTriggers.triggerThreshold", &cfg.NaturalTriggers.TriggerThreshold)
	overlayDuration(vip, "naturalTriggers.cooldownPeriod", &cfg.NaturalTriggers.CooldownPeriod)
	overlayInt(vip, "naturalTriggers.maxMemoriesPerTrigger", &cfg.NaturalTriggers.MaxMemoriesPerTrigger)

	overlayFloat(vip, "patternDetector.sensitivity", &cfg.PatternDetector.Sensitivity)
	overlayBool(vip, "patternDetector.adaptiveLearning", &cfg.PatternDetector.AdaptiveLearning)

	overlayBool(vip, "gitAnalysis.enabled", &cfg.GitAnalysis.Enabled)
	overlayInt(vip, "gitAnalysis.commitLookback", &cfg.GitAnalysis.CommitLookback)
	overlayInt(vip, "gitAnalysis.maxCommits", &cfg.GitAnalysis.MaxCommits)
	overlayFloat(vip, "gitAnalysis.contextWeight", &cfg.GitAnalysis.ContextWeight)
	overlayBool(vip, "gitAnalysis.adaptiveGitWeight", &cfg.GitAnalysis.AdaptiveGitWeight)

	overlayFloat(vip, "memoryScoring.weights.timeDecay", &cfg.MemoryScoring.Weights.TimeDecay)
	overlayFloat(vip, "memoryScoring.weights.tagRelevance", &cfg.MemoryScoring.Weights.TagRelevance)
	overlayFloat(vip, "memoryScoring.weights.contentRelevance", &cfg.MemoryScoring.Weights.ContentRelevance)
	overlayFloat(vip, "memoryScoring.weights.contentQuality", &cfg.MemoryScoring.Weights.ContentQuality)
	overlayFloat(vip, "memoryScoring.weights.recencyBonus", &cfg.MemoryScoring.Weights.RecencyBonus)
	overlayFloat(vip, "memoryScoring.timeDecayRate", &cfg.MemoryScoring.TimeDecayRate)
	overlayFloat(vip, "memoryScoring.minRelevance", &cfg.MemoryScoring.MinRelevance)
	overlayBool(vip, "memoryScoring.autoCalibrate", &cfg.MemoryScoring.AutoCalibrate)
	overlayFloat(vip, "memoryScoring.dedupThreshold", &cfg.MemoryScoring.DedupThreshold)
	overlayInt(vip, "memoryScoring.dedupMinLength", &cfg.MemoryScoring.DedupMinLength)

	overlayString(vip, "output.verbosity", &cfg.Output.Verbosity)
	overlayBool(vip, "output.showScoringBreakdown", &cfg.Output.ShowScoringBreakdown)
	overlayBool(vip, "output.showStorageSource", &cfg.Output.ShowStorageSource)

	overlayBool(vip, "codeExecution.enabled", &cfg.CodeExecution.Enabled)
	overlayDuration(vip, "codeExecution.timeout", &cfg.CodeExecution.Timeout)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

/*
Validate checks the bounded numeric settings and the profile selection.
Invalid values are rejected with a ConfigError; the caller decides whether to
fall back to defaults.
*/
func (cfg *Config) Validate() error {
	val := v.Is(
		v.Number(cfg.NaturalTriggers.TriggerThreshold, "naturalTriggers.triggerThreshold").Between(0, 1),
	).Is(
		v.Number(cfg.PatternDetector.Sensitivity, "patternDetector.sensitivity").Between(0, 1),
	).Is(
		v.Number(cfg.MemoryScoring.DedupThreshold, "memoryScoring.dedupThreshold").Between(0, 1),
	).Is(
		v.Number(cfg.MemoryService.RecentRatio, "memoryService.recentRatio").Between(0, 1),
	).Is(
		v.Number(int64(cfg.NaturalTriggers.CooldownPeriod), "naturalTriggers.cooldownPeriod").GreaterOrEqualTo(0),
	)

	if !val.Valid() {
		return errors.NewConfigError("config", val.Error().Error())
	}

	if _, ok := cfg.Performance.Profiles[cfg.Performance.DefaultProfile]; !ok {
		return errors.NewConfigError(
			"performance.defaultProfile",
			"unknown profile: "+cfg.Performance.DefaultProfile,
		)
	}

	return nil
}

func overlayString(vip *viper.Viper, key string, dst *string) {
	if vip.IsSet(key) {
		*dst = vip.GetString(key)
	}
}

func overlayBool(vip *viper.Viper, key string, dst *bool) {
	if vip.IsSet(key) {
		*dst = vip.GetBool(key)
	}
}

func overlayInt(vip *viper.Viper, key string, dst *int) {
	if vip.IsSet(key) {
		*dst = vip.GetInt(key)
	}
}

func overlayFloat(vip *viper.Viper, key string, dst *float64) {
	if vip.IsSet(key) {
		*dst = vip.GetFloat64(key)
	}
}

func overlayDuration(vip *viper.Viper, key string, dst *time.Duration) {
	if vip.IsSet(key) {
		*dst = vip.GetDuration(key)
	}
}

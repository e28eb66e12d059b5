package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage rebuttal configuration.

Running bare 'rebuttal config' is the same as 'rebuttal config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# rebuttal configuration
# See: rebuttal config show (for effective values and sources)

# Model provider: "anthropic" or "gemini"
provider: "{{ .Provider }}"

# Model name (empty: provider default)
model: "{{ .Model }}"

# How review and response files are matched:
#   exact - full file name (reviews/r1.txt needs responses/r1.txt)
#   stem  - file name without extension (r1.txt matches r1.md)
match: "{{ .Match }}"

# Report format: text, json, or yaml
format: "{{ .Format }}"

# API keys (prefer ANTHROPIC_API_KEY / GEMINI_API_KEY in the environment)
# base_url overrides the API endpoint (proxies, gateways)
anthropic:
  api_key: ""
  base_url: ""
gemini:
  api_key: ""
  base_url: ""

judge:
  # Judge responses with the model on every run (same as --judge)
  enabled: {{ .JudgeEnabled }}

  # Independent trials per review comment (same as --n)
  trials: {{ .Trials }}

  # Maximum concurrent model calls
  concurrency: {{ .Concurrency }}

  # Timeout per model call; a timed-out trial is dropped
  timeout: "{{ .Timeout }}"

  # Split each review into comments before judging
  split_comments: {{ .SplitComments }}

  # Retries the provider SDK makes on transient errors
  max_retries: {{ .MaxRetries }}
`

type configTemplateData struct {
	Provider      string
	Model         string
	Match         string
	Format        string
	JudgeEnabled  bool
	Trials        int
	Concurrency   int
	Timeout       string
	SplitComments bool
	MaxRetries    int
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	// Build template data from current viper values
	data := configTemplateData{
		Provider:      viper.GetString("provider"),
		Model:         viper.GetString("model"),
		Match:         viper.GetString("match"),
		Format:        viper.GetString("format"),
		JudgeEnabled:  viper.GetBool("judge.enabled"),
		Trials:        viper.GetInt("judge.trials"),
		Concurrency:   viper.GetInt("judge.concurrency"),
		Timeout:       viper.GetString("judge.timeout"),
		SplitComments: viper.GetBool("judge.split_comments"),
		MaxRetries:    viper.GetInt("judge.max_retries"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	// Create config directory
	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKeyInfo describes a config key for display purposes.
type configKeyInfo struct {
	Key    string
	EnvVar string
	Secret bool
}

var configKeys = []configKeyInfo{
	{Key: "provider", EnvVar: "REBUTTAL_PROVIDER"},
	{Key: "model", EnvVar: "REBUTTAL_MODEL"},
	{Key: "match", EnvVar: "REBUTTAL_MATCH"},
	{Key: "format", EnvVar: "REBUTTAL_FORMAT"},
	{Key: "anthropic.api_key", EnvVar: "REBUTTAL_ANTHROPIC_API_KEY", Secret: true},
	{Key: "gemini.api_key", EnvVar: "REBUTTAL_GEMINI_API_KEY", Secret: true},
	{Key: "anthropic.base_url", EnvVar: "REBUTTAL_ANTHROPIC_BASE_URL"},
	{Key: "gemini.base_url", EnvVar: "REBUTTAL_GEMINI_BASE_URL"},
	{Key: "judge.enabled", EnvVar: "REBUTTAL_JUDGE_ENABLED"},
	{Key: "judge.trials", EnvVar: "REBUTTAL_JUDGE_TRIALS"},
	{Key: "judge.concurrency", EnvVar: "REBUTTAL_JUDGE_CONCURRENCY"},
	{Key: "judge.timeout", EnvVar: "REBUTTAL_JUDGE_TIMEOUT"},
	{Key: "judge.split_comments", EnvVar: "REBUTTAL_JUDGE_SPLIT_COMMENTS"},
	{Key: "judge.max_retries", EnvVar: "REBUTTAL_JUDGE_MAX_RETRIES"},
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if config file exists
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	// Read config file values to determine file source
	fileValues := readConfigFileValues(cfgPath)

	for _, k := range configKeys {
		val := viper.Get(k.Key)
		if k.Secret {
			val = maskSecret(viper.GetString(k.Key))
		}
		source := detectSource(k.Key, k.EnvVar, fileValues)
		fmt.Fprintf(ui.Out, "  %-22s %v  %s\n", k.Key, val, source)
	}

	return nil
}

// maskSecret hides all but the last four characters of a credential.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	// Flatten nested keys with dot notation
	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return fmt.Sprintf("(env: %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}

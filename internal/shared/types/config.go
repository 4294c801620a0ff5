package types

import "time"

// CheckConf 控制验证引擎的行为。
type CheckConf struct {
	Concurrency    int      `ini:"concurrency"`     // 同时进行的探测数上限
	TimeoutSeconds int      `ini:"timeout_seconds"` // 单次探测超时
	ProbeURL       string   `ini:"probe_url"`
	TLSFingerprint string   `ini:"tls_fingerprint"` // "randomized" or "go"
	UserAgents     []string `ini:"user_agents" delim:"|"`
}

// Timeout returns the per-probe timeout as a duration.
func (c CheckConf) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SourcesConf lists the remote proxy lists per protocol class.
type SourcesConf struct {
	Socks4              []string `ini:"socks4" delim:","`
	Socks5              []string `ini:"socks5" delim:","`
	FetchTimeoutSeconds int      `ini:"fetch_timeout_seconds"`
}

func (c SourcesConf) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// OutputConf 控制结果目录与进度条。
type OutputConf struct {
	Dir      string `ini:"dir"`
	BarWidth int    `ini:"bar_width"`
	LogStep  int    `ini:"log_step"` // 非交互模式下每隔多少百分比输出一次进度
}

// LogConf contains logging specific configuration
type LogConf struct {
	Level   string `ini:"level"`
	NoColor bool   `ini:"no_color"`
}

// Config 是 harvester 的统一配置结构体。
type Config struct {
	CheckConf   `ini:"check"`
	SourcesConf `ini:"sources"`
	OutputConf  `ini:"output"`
	LogConf     `ini:"log"`
}

// DefaultUserAgents is the browser-like pool a probe or fetch picks its User-Agent from.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; rv:120.0) Gecko/20100101 Firefox/120.0",
	"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0",
	"Mozilla/5.0 (Windows NT 6.1; WOW64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.5993.90 Safari/537.36",
}

// DefaultConfig returns the built-in configuration; harvester.ini only overrides it.
func DefaultConfig() *Config {
	return &Config{
		CheckConf: CheckConf{
			Concurrency:    100,
			TimeoutSeconds: 6,
			ProbeURL:       "https://httpbin.org/ip",
			TLSFingerprint: "randomized",
			UserAgents:     append([]string(nil), DefaultUserAgents...),
		},
		SourcesConf: SourcesConf{
			Socks4: []string{
				"https://raw.githubusercontent.com/TheSpeedX/SOCKS-List/master/socks4.txt",
				"https://raw.githubusercontent.com/ShiftyTR/Proxy-List/master/socks4.txt",
			},
			Socks5: []string{
				"https://raw.githubusercontent.com/TheSpeedX/SOCKS-List/master/socks5.txt",
				"https://raw.githubusercontent.com/ShiftyTR/Proxy-List/master/socks5.txt",
				"https://raw.githubusercontent.com/hookzof/socks5_list/refs/heads/master/proxy.txt",
			},
			FetchTimeoutSeconds: 10,
		},
		OutputConf: OutputConf{
			Dir:      "results",
			BarWidth: 30,
			LogStep:  10,
		},
		LogConf: LogConf{
			Level: "info",
		},
	}
}

package server

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LogConfig 日志输出配置
type LogConfig struct {
	File   string
	Level  string
	Stderr bool
}

// Config 进程级配置：监听地址、静态资源目录以及中继规则
type Config struct {
	Addr      string
	StaticDir string
	Log       LogConfig

	AttackCooldown time.Duration // 两次攻击开始之间的最小间隔
	ProjectileTTL  time.Duration // 弹道实体最长存活时间
	SweepInterval  time.Duration // 过期清扫周期

	SendQueue      int // 每个连接的出站队列长度，满则视为断开
	MaxConnections int // 0 表示不限制

	SpawnHalfExtent float64 // 出生点在 [-h, h) 的正方形内随机
	GroundY         float64

	MaxNameLen int
	MaxChatLen int
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		Addr:      ":3000",
		StaticDir: "public",
		Log: LogConfig{
			File:  "app.log",
			Level: "debug",
		},
		AttackCooldown:  500 * time.Millisecond,
		ProjectileTTL:   8 * time.Second,
		SweepInterval:   30 * time.Second,
		SendQueue:       64,
		MaxConnections:  0,
		SpawnHalfExtent: 10,
		GroundY:         1,
		MaxNameLen:      32,
		MaxChatLen:      280,
	}
}

// LoadConfig 依次叠加：默认值 → .env 文件 → 环境变量 → 命令行参数
func LoadConfig(args []string, envFile string) (Config, error) {
	cfg := DefaultConfig()

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}

	fsFlags := flag.NewFlagSet("arenasync", flag.ContinueOnError)
	fsFlags.StringVar(&cfg.Addr, "addr", cfg.Addr, "server listen address, e.g. :3000")
	fsFlags.StringVar(&cfg.StaticDir, "static", cfg.StaticDir, "directory served at /")
	fsFlags.StringVar(&cfg.Log.File, "log-file", cfg.Log.File, "rolling log file, empty to disable")
	fsFlags.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "debug, info, warn or error")
	fsFlags.BoolVar(&cfg.Log.Stderr, "log-stderr", cfg.Log.Stderr, "also log to stderr")
	fsFlags.DurationVar(&cfg.AttackCooldown, "attack-cooldown", cfg.AttackCooldown, "minimum interval between accepted attacks")
	fsFlags.DurationVar(&cfg.ProjectileTTL, "projectile-ttl", cfg.ProjectileTTL, "maximum projectile age")
	fsFlags.DurationVar(&cfg.SweepInterval, "sweep-interval", cfg.SweepInterval, "projectile expiry sweep period")
	fsFlags.IntVar(&cfg.SendQueue, "send-queue", cfg.SendQueue, "outbound frames buffered per connection")
	fsFlags.IntVar(&cfg.MaxConnections, "max-conns", cfg.MaxConnections, "maximum live connections, 0 for unlimited")
	if err := fsFlags.Parse(args); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

// Validate 校验配置取值范围
func (c Config) Validate() error {
	switch {
	case c.Addr == "":
		return errors.New("config: empty listen address")
	case c.AttackCooldown < 0:
		return fmt.Errorf("config: negative attack cooldown %s", c.AttackCooldown)
	case c.ProjectileTTL <= 0:
		return fmt.Errorf("config: projectile ttl must be positive, got %s", c.ProjectileTTL)
	case c.SweepInterval <= 0:
		return fmt.Errorf("config: sweep interval must be positive, got %s", c.SweepInterval)
	case c.SendQueue <= 0:
		return fmt.Errorf("config: send queue must be positive, got %d", c.SendQueue)
	case c.MaxConnections < 0:
		return fmt.Errorf("config: negative max connections %d", c.MaxConnections)
	case c.SpawnHalfExtent < 0:
		return fmt.Errorf("config: negative spawn extent %v", c.SpawnHalfExtent)
	}
	return nil
}

// applyEnv 读取 ARENA_* 环境变量；PORT 兼容常见托管平台
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("PORT"); ok && v != "" {
		c.Addr = ":" + v
	}
	strs := map[string]*string{
		"ARENA_ADDR":       &c.Addr,
		"ARENA_STATIC_DIR": &c.StaticDir,
		"ARENA_LOG_FILE":   &c.Log.File,
		"ARENA_LOG_LEVEL":  &c.Log.Level,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	durs := map[string]*time.Duration{
		"ARENA_ATTACK_COOLDOWN": &c.AttackCooldown,
		"ARENA_PROJECTILE_TTL":  &c.ProjectileTTL,
		"ARENA_SWEEP_INTERVAL":  &c.SweepInterval,
	}
	for key, dst := range durs {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
	}

	ints := map[string]*int{
		"ARENA_SEND_QUEUE":   &c.SendQueue,
		"ARENA_MAX_CONNS":    &c.MaxConnections,
		"ARENA_MAX_NAME_LEN": &c.MaxNameLen,
		"ARENA_MAX_CHAT_LEN": &c.MaxChatLen,
	}
	for key, dst := range ints {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
	}

	floats := map[string]*float64{
		"ARENA_SPAWN_EXTENT": &c.SpawnHalfExtent,
		"ARENA_GROUND_Y":     &c.GroundY,
	}
	for key, dst := range floats {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = f
	}

	if v, ok := lookup("ARENA_LOG_STDERR"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ARENA_LOG_STDERR: %w", err)
		}
		c.Log.Stderr = b
	}
	return nil
}

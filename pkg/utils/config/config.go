package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/junbin-yang/microcoap-go/pkg/netstack"
	log "github.com/junbin-yang/microcoap-go/pkg/utils/logger"
	"github.com/junbin-yang/microcoap-go/pkg/utils/network"
	"gopkg.in/yaml.v2"
)

var (
	APPNAME    string = "coapd"
	VERSION    string = "undefined"
	BUILD_TIME string = "undefined"
	GO_VERSION string = "undefined"
)

// EnvPrefix 环境变量前缀，如 COAPD_PORT、COAPD_LOGGER_LEVEL
const EnvPrefix = "COAPD_"

type Config struct {
	Listen       string        `yaml:"listen" toml:"listen" env:"LISTEN"`
	Port         uint16        `yaml:"port" toml:"port" env:"PORT"`
	Payload      string        `yaml:"payload" toml:"payload" env:"PAYLOAD"`
	BufferSize   int           `yaml:"buffer_size" toml:"buffer_size" env:"BUFFER_SIZE"`
	PollInterval time.Duration `yaml:"poll_interval" toml:"poll_interval" env:"POLL_INTERVAL"`

	Device struct {
		Interface string `yaml:"interface" toml:"interface" env:"INTERFACE"`
		MAC       string `yaml:"mac" toml:"mac" env:"MAC"`
		IP        string `yaml:"ip" toml:"ip" env:"IP"`
	} `yaml:"device" toml:"device" envPrefix:"DEVICE_"`

	Logger struct {
		Dir      string `yaml:"dir" toml:"dir" env:"DIR"`
		Level    string `yaml:"level" toml:"level" env:"LEVEL"`
		Rotate   bool   `yaml:"rotate" toml:"rotate" env:"ROTATE"`
		RotateBy string `yaml:"rotate_by" toml:"rotate_by" env:"ROTATE_BY"`
	} `yaml:"logger" toml:"logger" envPrefix:"LOGGER_"`

	Metrics struct {
		Addr string `yaml:"addr" toml:"addr" env:"ADDR"`
	} `yaml:"metrics" toml:"metrics" envPrefix:"METRICS_"`
}

func Default() *Config {
	conf := new(Config)
	conf.Listen = "0.0.0.0"
	conf.Port = 5683
	conf.Payload = "Hello"
	conf.BufferSize = 1500
	conf.PollInterval = 100 * time.Millisecond
	conf.Logger.Level = "info"
	conf.Logger.RotateBy = "time"
	return conf
}

// DefaultPath 依次查找可执行文件所在目录与/etc下的配置文件，都不存在时返回空串
func DefaultPath() string {
	if ex, err := os.Executable(); err == nil {
		for _, ext := range []string{".yml", ".toml"} {
			cfile := filepath.Join(filepath.Dir(ex), APPNAME+ext)
			if _, err := os.Stat(cfile); err == nil {
				return cfile
			}
		}
	}
	for _, ext := range []string{".yml", ".toml"} {
		cfile := "/etc/" + APPNAME + ext
		if _, err := os.Stat(cfile); err == nil {
			return cfile
		}
	}
	return ""
}

// Load 读取配置：默认值 <- 配置文件(yaml/toml) <- .env <- COAPD_* 环境变量。
// path为空时跳过配置文件。
func Load(path string) (*Config, error) {
	conf := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".toml":
			err = toml.Unmarshal(data, conf)
		default:
			err = yaml.Unmarshal(data, conf)
		}
		if err != nil {
			return nil, fmt.Errorf("解析配置文件%s失败: %w", path, err)
		}
	}

	// .env 可选
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("加载.env失败: %w", err)
	}
	if err := env.ParseWithOptions(conf, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("解析环境变量失败: %w", err)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func (c *Config) Validate() error {
	if c.Port == 0 {
		return errors.New("port不能为0")
	}
	if c.BufferSize < netstack.HeaderSize+4 || c.BufferSize > netstack.EthernetHeaderSize+0xffff {
		return fmt.Errorf("buffer_size %d 超出范围", c.BufferSize)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval %s 必须大于0", c.PollInterval)
	}
	switch c.Logger.RotateBy {
	case "", "time", "size":
	default:
		return fmt.Errorf("未知的logger.rotate_by: %s", c.Logger.RotateBy)
	}
	return nil
}

// ListenAddr 返回UDP监听地址
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Listen, c.Port)
}

// SetupLogger 按配置替换默认日志并设置级别
func (c *Config) SetupLogger() error {
	defer log.Sync()
	if c.Logger.Rotate {
		if len(c.Logger.Dir) == 0 {
			ex, err := os.Executable()
			if err != nil {
				return err
			}
			c.Logger.Dir = filepath.Dir(ex)
		}
		file := filepath.Join(c.Logger.Dir, APPNAME+".log")
		var out io.Writer
		switch c.Logger.RotateBy {
		case "size":
			out = log.NewProductionRotateBySize(file)
		default:
			out = log.NewProductionRotateByTime(file)
		}
		log.ReplaceDefault(log.New(out, log.InfoLevel))
	}
	switch c.Logger.Level {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
	return nil
}

// AutoInterface 作为device.interface时自动选择第一个可用接口
const AutoInterface = "auto"

var (
	getInterface        = network.GetInterface
	getDefaultInterface = network.GetDefaultInterface
)

func lookupInterface(name string) (*network.InterfaceInfo, error) {
	if name == AutoInterface {
		return getDefaultInterface()
	}
	return getInterface(name)
}

// DeviceAddr 解析本设备MAC/IP。未配置的字段从Device.Interface指定的接口补齐，
// Device.Interface为auto时使用默认接口。
func (c *Config) DeviceAddr() (netstack.Device, error) {
	dev, err := netstack.ParseDevice(c.Device.MAC, c.Device.IP)
	if err != nil {
		return netstack.Device{}, err
	}
	if c.Device.Interface == "" || (dev.MAC != ([6]byte{}) && dev.IP != ([4]byte{})) {
		return dev, nil
	}

	info, err := lookupInterface(c.Device.Interface)
	if err != nil {
		return netstack.Device{}, err
	}
	if dev.MAC == ([6]byte{}) && len(info.MAC) == 6 {
		copy(dev.MAC[:], info.MAC)
	}
	if dev.IP == ([4]byte{}) {
		if ip, _, ok := info.FirstIPv4(); ok {
			copy(dev.IP[:], ip)
		}
	}
	log.Infof("[CONFIG] 设备地址 mac=%x ip=%d.%d.%d.%d (接口 %s)",
		dev.MAC, dev.IP[0], dev.IP[1], dev.IP[2], dev.IP[3], info.Name)
	return dev, nil
}

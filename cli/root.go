package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"k8s.io/klog/v2"
)

var cfgFile string
var Config config

type config struct {
	Driver   string
	Host     string
	Pool     string
	logLevel logrus.Level
}

func parseLogLevel(logLevel string) (logrus.Level, error) {
	switch strings.ToLower(logLevel) {
	case "trace":
		return logrus.TraceLevel, nil
	case "debug":
		return logrus.DebugLevel, nil
	case "info":
		return logrus.InfoLevel, nil
	case "warn", "warning":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	case "fatal":
		return logrus.FatalLevel, nil
	case "panic":
		return logrus.PanicLevel, nil
	default:
		return logrus.InfoLevel, fmt.Errorf("invalid log level: %s", logLevel)
	}
}

func (c *config) ParseConfig() {
	c.Driver = viper.GetString("driver")       // default: nexenta
	c.Host = viper.GetString("nexenta_host")   // required
	c.Pool = viper.GetString("nexenta_volume") // default: cinder
	logLevel := logrus.InfoLevel
	envLogLevel := os.Getenv("LOG_LEVEL")
	if envLogLevel == "" {
		envLogLevel = viper.GetString("log_level")
	}
	if envLogLevel != "" {
		currLevel, err := parseLogLevel(envLogLevel)
		if err != nil {
			logrus.Error(err)
		} else {
			logLevel = currLevel
		}
	}
	c.logLevel = logLevel
	logrus.SetLevel(logLevel)
}

var rootCmd = &cobra.Command{
	Use:           "nexentactl",
	Short:         "manage volumes on a NexentaStor appliance",
	Long:          "nexentactl drives the Nexenta iSCSI volume driver: volumes, snapshots, exports and migrations",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func initCfg() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		homeDir, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(homeDir)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".nexentactl")
	}
	viper.SetEnvPrefix("NEXENTACTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("/", "_", "-", "_"))
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			logrus.Error(err, viper.ConfigFileUsed())
		} else {
			logrus.Debug("no config file found, using defaults")
		}
	} else {
		logrus.Debugf("using config file %s", viper.ConfigFileUsed())
	}

	Config.ParseConfig()
	logrus.Debugf("Config Parsed as: %+v", Config)
}

// Execute runs the root command
func Execute() error {
	logLevel := logrus.InfoLevel
	if envLogLevel := os.Getenv("LOG_LEVEL"); envLogLevel != "" {
		currLevel, err := parseLogLevel(envLogLevel)
		if err != nil {
			logrus.Error(err)
		} else {
			logLevel = currLevel
		}
	}
	logrus.SetLevel(logLevel)
	defer klog.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initCfg)

	klogFlags := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(klogFlags)
	rootCmd.PersistentFlags().AddGoFlagSet(klogFlags)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Default config file $HOME/.nexentactl.yaml")
	rootCmd.PersistentFlags().String("driver", "nexenta", "Volume driver to use")
	rootCmd.PersistentFlags().String("host", "", "NexentaStor appliance host (nexenta_host)")
	rootCmd.PersistentFlags().String("pool", "", "NexentaStor volume holding the zvols (nexenta_volume)")

	for key, flagName := range map[string]string{
		"driver":         "driver",
		"nexenta_host":   "host",
		"nexenta_volume": "pool",
	} {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flagName)); err != nil {
			logrus.Errorf("error in binding %s: %v", key, err)
		}
	}
	for key, env := range map[string]string{
		"os_auth_url":    "OS_AUTH_URL",
		"os_username":    "OS_USERNAME",
		"os_password":    "OS_PASSWORD",
		"os_tenant_name": "OS_PROJECT_NAME",
		"os_domain_name": "OS_USER_DOMAIN_NAME",
		"os_region_name": "OS_REGION_NAME",
		"os_insecure":    "OS_INSECURE",
	} {
		if err := viper.BindEnv(key, "NEXENTACTL_"+strings.ToUpper(key), env); err != nil {
			logrus.Errorf("error in reading %s: %v", key, err)
		}
	}
	viper.SetDefault("driver", "nexenta")
	viper.SetDefault("log_level", "info")
}

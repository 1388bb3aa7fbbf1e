package main

import (
	"context"
	"fmt"
	"os"

	"github.com/junbin-yang/microcoap-go/pkg/utils/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "coapd",
	Short: "极简CoAP应答服务",
	Long: `coapd - 在单个帧缓冲区上原地完成CoAP请求解码与应答编码

  coapd serve              # 监听UDP并对每个请求应答固定负载
  coapd probe host:port    # 发送一次请求并打印应答
  coapd version`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "打印版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), versionString())
	},
}

func versionString() string {
	return config.APPNAME + ", version: " + config.VERSION + " (built at " + config.BUILD_TIME + ") " + config.GO_VERSION
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

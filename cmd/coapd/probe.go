package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"time"

	"github.com/junbin-yang/microcoap-go/pkg/coap"
	"github.com/junbin-yang/microcoap-go/pkg/netstack"
	"github.com/junbin-yang/microcoap-go/pkg/responder"
	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/codes"
	"github.com/plgd-dev/go-coap/v3/message/pool"
	"github.com/plgd-dev/go-coap/v3/udp/coder"
	"github.com/spf13/cobra"
)

type probeFlags struct {
	path    string
	query   []string
	token   string
	body    string
	non     bool
	dryRun  bool
	payload string
	timeout time.Duration
}

var probeOpts probeFlags

var probeCmd = &cobra.Command{
	Use:   "probe [host:port]",
	Short: "发送一次GET请求并打印应答",
	Long: `使用独立的CoAP编解码器构造请求，验证coapd的应答。
--dry-run 时不访问网络，请求经内存传输交给进程内的应答循环处理。`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := fmt.Sprintf("127.0.0.1:%d", coap.DefaultPort)
		if len(args) > 0 {
			addr = args[0]
		}
		return runProbe(cmd.Context(), addr, probeOpts, cmd.OutOrStdout())
	},
}

func init() {
	f := probeCmd.Flags()
	f.StringVar(&probeOpts.path, "path", "", "Uri-Path")
	f.StringSliceVar(&probeOpts.query, "query", nil, "Uri-Query, 可重复")
	f.StringVar(&probeOpts.token, "token", "", "十六进制Token, 最长8字节")
	f.StringVar(&probeOpts.body, "body", "", "请求负载")
	f.BoolVar(&probeOpts.non, "non", false, "发送Non-confirmable请求")
	f.BoolVar(&probeOpts.dryRun, "dry-run", false, "不访问网络, 在进程内完成一次交互")
	f.StringVar(&probeOpts.payload, "payload", "Hello", "dry-run时应答使用的负载")
	f.DurationVar(&probeOpts.timeout, "timeout", 2*time.Second, "等待应答的超时")
}

// buildProbe 用go-coap编码请求
func buildProbe(ctx context.Context, opts probeFlags) ([]byte, error) {
	token, err := hex.DecodeString(opts.token)
	if err != nil {
		return nil, fmt.Errorf("token格式错误: %w", err)
	}
	if len(token) > coap.MaxTokenLength {
		return nil, fmt.Errorf("token长度%d超过%d", len(token), coap.MaxTokenLength)
	}

	req := pool.NewMessage(ctx)
	defer req.Reset()
	req.SetCode(codes.GET)
	req.SetType(message.Confirmable)
	if opts.non {
		req.SetType(message.NonConfirmable)
	}
	req.SetMessageID(int32(rand.IntN(0x10000)))
	if len(token) > 0 {
		req.SetToken(token)
	}
	if opts.path != "" {
		if err := req.SetPath(opts.path); err != nil {
			return nil, err
		}
	}
	for _, q := range opts.query {
		req.AddQuery(q)
	}
	if opts.body != "" {
		req.SetBody(bytes.NewReader([]byte(opts.body)))
	}
	return req.MarshalWithEncoder(coder.DefaultCoder)
}

func runProbe(ctx context.Context, addr string, opts probeFlags, out io.Writer) error {
	data, err := buildProbe(ctx, opts)
	if err != nil {
		return err
	}
	var resp []byte
	if opts.dryRun {
		resp, err = exchangeInProcess(ctx, data, []byte(opts.payload))
	} else {
		resp, err = exchangeUDP(addr, data, opts.timeout)
	}
	if err != nil {
		return err
	}
	return printResponse(ctx, resp, out)
}

func exchangeUDP(addr string, data []byte, timeout time.Duration) ([]byte, error) {
	conn, err := net.Dial("udp4", addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	if _, err := conn.Write(data); err != nil {
		return nil, err
	}
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	buf := make([]byte, 1500)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("等待应答失败: %w", err)
	}
	return buf[:n], nil
}

// exchangeInProcess 把请求封装成以太网帧交给内存传输上的应答循环，返回应答的UDP负载
func exchangeInProcess(ctx context.Context, data, payload []byte) ([]byte, error) {
	route := netstack.Route{
		SrcMAC:  [6]byte{0x02, 0, 0, 0, 0, 1},
		DstMAC:  [6]byte{0x02, 0, 0, 0, 0, 2},
		SrcIP:   [4]byte{127, 0, 0, 1},
		DstIP:   [4]byte{127, 0, 0, 1},
		SrcPort: 49152,
		DstPort: coap.DefaultPort,
	}
	frame := make([]byte, netstack.HeaderSize+len(data))
	copy(frame[netstack.HeaderSize:], data)
	if _, err := netstack.Encapsulate(frame, route, len(data), 1); err != nil {
		return nil, err
	}

	tr := netstack.NewMemTransport()
	tr.Push(frame)
	srv := responder.New(tr, netstack.Device{}, coap.DefaultPort, 0, nil)
	srv.Payload = payload
	if err := srv.ServeOnce(ctx); err != nil {
		return nil, err
	}

	sent := tr.Sent()
	if len(sent) != 1 {
		return nil, fmt.Errorf("期望1个应答帧, 实际%d", len(sent))
	}
	f, err := netstack.NewFrame(sent[0])
	if err != nil {
		return nil, err
	}
	if !f.VerifyIPv4() || !f.VerifyUDP() {
		return nil, fmt.Errorf("应答帧校验和错误")
	}
	return f.UDP().Payload(), nil
}

func printResponse(ctx context.Context, data []byte, out io.Writer) error {
	resp := pool.NewMessage(ctx)
	defer resp.Reset()
	if _, err := resp.UnmarshalWithDecoder(coder.DefaultCoder, data); err != nil {
		return fmt.Errorf("解析应答失败: %w", err)
	}
	fmt.Fprintf(out, "type:    %s\n", resp.Type())
	fmt.Fprintf(out, "code:    %s\n", resp.Code())
	fmt.Fprintf(out, "mid:     %d\n", resp.MessageID())
	fmt.Fprintf(out, "token:   %s\n", hex.EncodeToString(resp.Token()))
	if resp.Body() != nil {
		body, err := resp.ReadBody()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "payload: %s\n", body)
	}
	return nil
}

package main

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/junbin-yang/microcoap-go/pkg/coap"
	"github.com/junbin-yang/microcoap-go/pkg/netstack"
	"github.com/junbin-yang/microcoap-go/pkg/responder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildProbe(t *testing.T) {
	data, err := buildProbe(context.Background(), probeFlags{path: "temp", token: "3a", non: true})
	require.NoError(t, err)

	frame := make([]byte, netstack.HeaderSize+len(data))
	copy(frame[netstack.HeaderSize:], data)
	_, err = netstack.Encapsulate(frame, netstack.Route{DstPort: coap.DefaultPort}, len(data), 1)
	require.NoError(t, err)

	msg, err := coap.Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, coap.NonConfirmable, msg.Header.Type)
	assert.Equal(t, coap.GET, msg.Header.Code)
	assert.Equal(t, []byte{0x3a}, msg.Token)
	assert.Equal(t, "temp", string(msg.Options.URIPath.Value))
}

func TestBuildProbeBadToken(t *testing.T) {
	_, err := buildProbe(context.Background(), probeFlags{token: "zz"})
	assert.Error(t, err)
	_, err = buildProbe(context.Background(), probeFlags{token: "000102030405060708"})
	assert.Error(t, err)
}

func TestProbeDryRun(t *testing.T) {
	var out bytes.Buffer
	err := runProbe(context.Background(), "", probeFlags{token: "cafe", dryRun: true, payload: "Hello"}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Acknowledgement")
	assert.Contains(t, out.String(), "Content")
	assert.Contains(t, out.String(), "token:   cafe")
	assert.Contains(t, out.String(), "payload: Hello")
}

func TestProbeDryRunWithQuery(t *testing.T) {
	var out bytes.Buffer
	err := runProbe(context.Background(), "", probeFlags{dryRun: true, query: []string{"a=1"}}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Content")
}

func TestProbeUDPLoopback(t *testing.T) {
	tr, err := netstack.ListenUDP("127.0.0.1:0", netstack.Device{}, 10*time.Millisecond)
	if err != nil {
		t.Skipf("udp loopback unavailable: %v", err)
	}
	defer tr.Close()

	port := tr.LocalAddr().Port
	srv := responder.New(tr, netstack.Device{}, uint16(port), 0, nil)
	srv.Payload = []byte("over-udp")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx)

	var out bytes.Buffer
	err = runProbe(ctx, fmt.Sprintf("127.0.0.1:%d", port), probeFlags{path: "x", token: "01", timeout: 2 * time.Second}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "payload: over-udp")
}

func TestLoadServeConfigFlags(t *testing.T) {
	require.NoError(t, serveCmd.Flags().Set("port", "15683"))
	require.NoError(t, serveCmd.Flags().Set("payload", "flag"))
	t.Cleanup(func() {
		serveCmd.Flags().Lookup("port").Changed = false
		serveCmd.Flags().Lookup("payload").Changed = false
	})

	conf, err := loadServeConfig(serveCmd, serveOpts)
	require.NoError(t, err)
	assert.Equal(t, uint16(15683), conf.Port)
	assert.Equal(t, "flag", conf.Payload)
}

func TestVersionString(t *testing.T) {
	assert.Contains(t, versionString(), "coapd, version: ")
}

// (c) Probeworks 2026
//
// SPDX-License-Identifier: MIT

package remote

import (
	"time"

	"github.com/probeworks/caprun"
	"github.com/probeworks/caprun/cli"
	"github.com/spf13/cobra"
	"github.com/thediveo/go-plugger/v3"
)

// BearerToken specifies the bearer token to authenticate with when recording
// from a remote capture service.
var BearerToken string

// StreamTimeout limits how long connecting to a remote capture service may
// take, including the websocket handshake.
var StreamTimeout time.Duration

// Insecure skips invalid capture service certificates.
var Insecure bool

func init() {
	plugger.Group[cli.SetupCLI]().Register(
		RemoteSetupCLI, plugger.WithPlugin("remote"))
	plugger.Group[cli.NewStreamOptions]().Register(
		NewRemoteStreamOptions, plugger.WithPlugin("remote"))
	plugger.Group[cli.CommandExamples]().Register(
		func() map[string]string {
			return map[string]string{
				"run": `# Record a remote capture service stream beside a local workload.
caprun run -c session.yaml -- curl -sS http://service.example.org/healthz

# with session.yaml containing a stream monitor:
#   monitors:
#     - name: edgecap
#       kind: stream
#       service_url: https://edge-node:5001/capture`,
			}
		},
		plugger.WithPlugin("remote"), plugger.WithPlacement("<"))
}

func RemoteSetupCLI(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&BearerToken, "token", "",
		"Bearer token to authenticate with remote capture services")
	pf.DurationVar(&StreamTimeout, "stream-timeout", caprun.DefaultStreamTimeout,
		"Time limit for connecting to a remote capture service")
	pf.BoolVarP(&Insecure, "insecure", "k", false,
		"Danger: skip invalid certificates when connecting to a remote capture service")
}

func NewRemoteStreamOptions() *caprun.StreamOptions {
	return &caprun.StreamOptions{
		BearerToken:        BearerToken,
		Timeout:            StreamTimeout,
		InsecureSkipVerify: Insecure,
	}
}

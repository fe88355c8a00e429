package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dkeye/Roulette/internal/domain"
	"github.com/dkeye/Roulette/internal/peer"
)

var (
	flagServer  string
	flagTimeout time.Duration
	flagDebug   bool
)

var rootCmd = &cobra.Command{
	Use:   "roulette-client",
	Short: "Join the roulette pool, negotiate a call with whoever you get paired with",
	Long: `Connects to a roulette signaling server, enters the matchmaking pool and,
once paired, runs the WebRTC offer/answer exchange with the partner.
Text typed on stdin goes to the partner as chat.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func run(ctx context.Context) error {
	client := peer.NewSignalingClient(flagServer)
	if err := client.Connect(); err != nil {
		return err
	}
	defer client.Close()

	var (
		self domain.ParticipantID

		// machineMu guards machine: the event loop swaps it per session while
		// the stdin reader resolves the current session id through it.
		machineMu sync.Mutex
		machine   *peer.Machine
	)
	setMachine := func(m *peer.Machine) {
		machineMu.Lock()
		machine = m
		machineMu.Unlock()
	}
	closeMachine := func() {
		machineMu.Lock()
		m := machine
		machine = nil
		machineMu.Unlock()
		if m != nil {
			m.Close()
		}
	}
	defer closeMachine()

	go readChatInput(ctx, client, func() domain.SessionID {
		machineMu.Lock()
		defer machineMu.Unlock()
		if machine == nil {
			return ""
		}
		return machine.SessionID()
	})

	client.Join()

	for {
		select {
		case <-ctx.Done():
			client.Leave()
			return nil
		case msg, ok := <-client.Incoming():
			if !ok {
				return fmt.Errorf("server connection lost")
			}

			switch msg.Type {
			case "welcome":
				self = msg.ID
				log.Info().Str("module", "client").Str("id", string(self)).Msg("connected")

			case "waiting":
				fmt.Println("waiting for a partner...")

			case "matched":
				fmt.Printf("matched with %s (session %s)\n", msg.Partner, msg.Session)
				m, err := newMachine(self, client)
				if err != nil {
					return err
				}
				setMachine(m)
				if msg.Initiator {
					if err := m.Initiate(ctx, msg.Partner); err != nil {
						log.Error().Err(err).Str("module", "client").Msg("negotiation start failed")
					}
				}

			case "signal":
				if machine == nil {
					log.Warn().Str("module", "client").Msg("signal without a session")
					continue
				}
				var sig domain.Signal
				if err := json.Unmarshal(msg.Signal, &sig); err != nil {
					log.Warn().Err(err).Str("module", "client").Msg("bad signal payload")
					continue
				}
				if err := machine.HandleSignal(ctx, msg.From, sig); err != nil {
					log.Warn().Err(err).Str("module", "client").Msg("signal rejected")
				}

			case "chat":
				fmt.Printf("[%s] %s: %s\n", msg.Timestamp.Format("15:04:05"), msg.From, msg.Text)

			case "partnerDisconnected":
				fmt.Println("partner left, rejoining the pool")
				closeMachine()
				client.Join()

			case "left":
				closeMachine()

			case "error":
				log.Warn().Str("module", "client").Str("error", msg.Error).Msg("server error")

			case "pong":
				// keepalive reply, nothing to do
			}
		}
	}
}

func newMachine(self domain.ParticipantID, client *peer.SignalingClient) (*peer.Machine, error) {
	transport, err := peer.NewPionTransport(peer.DefaultRTCConfig())
	if err != nil {
		return nil, err
	}
	transport.Start(context.Background())

	return peer.NewMachine(peer.Config{
		Self:      self,
		Transport: transport,
		Media:     &peer.StaticSource{},
		Send:      client.SendEnvelope,
		Timeout:   flagTimeout,
		OnStateChange: func(s peer.State) {
			if s == peer.StateConnected {
				fmt.Println("call connected")
			}
		},
	}), nil
}

func readChatInput(ctx context.Context, client *peer.SignalingClient, session func() domain.SessionID) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		text := scanner.Text()
		if text == "" {
			continue
		}
		sid := session()
		if sid == "" {
			fmt.Println("not in a session yet")
			continue
		}
		client.SendChat(sid, text)
	}
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	rootCmd.Flags().StringVarP(&flagServer, "server", "s", "ws://localhost:8080/api/ws/signal", "Signaling server URL")
	rootCmd.Flags().DurationVar(&flagTimeout, "timeout", peer.DefaultNegotiationTimeout, "Negotiation timeout")
	rootCmd.Flags().BoolVar(&flagDebug, "debug", false, "Verbose logging")

	cobra.OnInitialize(func() {
		if flagDebug {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd.SilenceUsage = true
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("client exited")
		os.Exit(1)
	}
}

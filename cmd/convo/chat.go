package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pario-ai/convo/pkg/conversation"
	"github.com/pario-ai/convo/pkg/engine"
	"github.com/pario-ai/convo/pkg/models"
)

const chatHelp = `Commands:
  /context            show the assembled context
  /stats              show conversation and engine statistics
  /prune [strategy]   drop one turn (oldest or least_relevant)
  /clear              forget the conversation
  /export <path>      write the conversation to a .json or .yaml file
  /quit               exit`

func newChatCmd(configPath *string) *cobra.Command {
	var (
		system     string
		window     int
		noSummary  bool
		exportPath string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat on stdin with bounded conversation memory",
		RunE: withApp(configPath, func(cmd *cobra.Command, args []string, a *app) error {
			store := conversation.NewStore(a.cfg.Context, conversation.WithLogger(a.log))
			if system != "" {
				store.AddSystemMessage(system)
			}

			s := &chatSession{
				cmd:            cmd,
				app:            a,
				store:          store,
				window:         window,
				includeSummary: !noSummary,
				out:            cmd.OutOrStdout(),
			}
			if err := s.run(cmd.InOrStdin()); err != nil {
				return err
			}

			if exportPath != "" {
				return store.Export(exportPath)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&system, "system", "", "system instruction added before the first turn")
	cmd.Flags().IntVar(&window, "window", 10, "number of recent turns sent as context (0 sends all)")
	cmd.Flags().BoolVar(&noSummary, "no-summary", false, "omit the rolling summary from the context")
	cmd.Flags().StringVar(&exportPath, "export", "", "export the conversation on exit")
	return cmd
}

type chatSession struct {
	cmd            *cobra.Command
	app            *app
	store          *conversation.Store
	window         int
	includeSummary bool
	out            io.Writer
}

func (s *chatSession) run(in io.Reader) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			quit, err := s.command(line)
			if err != nil {
				fmt.Fprintln(s.out, "error:", err)
			}
			if quit {
				return nil
			}
			continue
		}
		if err := s.reply(line); err != nil {
			return err
		}
	}
	return sc.Err()
}

// reply records the user turn, generates against the assembled context and
// records the answer.
func (s *chatSession) reply(line string) error {
	s.store.AddTurn(models.RoleUser, line, nil)

	prompt := s.store.Render(s.window, s.includeSummary) + "\n" + models.RoleAssistant + ":"
	text, err := s.app.engine.Generate(s.cmd.Context(), engine.Request{Prompt: prompt})
	if err != nil {
		return err
	}

	s.store.AddTurn(models.RoleAssistant, text, nil)
	fmt.Fprintln(s.out, text)

	if s.store.NearCapacity() {
		s.app.log.WithField("tokens", s.store.EstimateTokens()).Warn("conversation near context capacity")
	}
	return nil
}

func (s *chatSession) command(line string) (quit bool, err error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		fmt.Fprintln(s.out, chatHelp)
	case "/context":
		fmt.Fprintln(s.out, s.store.Render(s.window, s.includeSummary))
	case "/stats":
		enc := json.NewEncoder(s.out)
		enc.SetIndent("", "  ")
		return false, enc.Encode(struct {
			Conversation models.ContextStats `json:"conversation"`
			Engine       models.EngineStats  `json:"engine"`
		}{s.store.Stats(), s.app.engine.Statistics()})
	case "/prune":
		strategy := conversation.PruneOldest
		if len(fields) > 1 {
			strategy = conversation.PruneStrategy(fields[1])
		}
		if err := s.store.Prune(strategy); err != nil {
			return false, err
		}
		fmt.Fprintf(s.out, "pruned, %d turns left\n", s.store.Len())
	case "/clear":
		fmt.Fprintf(s.out, "cleared %d turns\n", s.store.Clear())
	case "/export":
		if len(fields) < 2 {
			return false, fmt.Errorf("usage: /export <path>")
		}
		if err := s.store.Export(fields[1]); err != nil {
			return false, err
		}
		fmt.Fprintf(s.out, "exported to %s\n", fields[1])
	default:
		return false, fmt.Errorf("unknown command %s (try /help)", fields[0])
	}
	return false, nil
}

package cli

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mamadbah2/packwrap/internal/domain/models"
	"github.com/mamadbah2/packwrap/internal/repository/kv"
	"github.com/mamadbah2/packwrap/internal/service/orders"
	"github.com/mamadbah2/packwrap/pkg/clients/anthropic"
)

type parseResult struct {
	Order   models.ParsedOrder `json:"order"`
	Missing []string           `json:"missing"`
	Text    string             `json:"text"`
}

func newParseCmd(opts *options) *cobra.Command {
	var assist bool

	cmd := &cobra.Command{
		Use:   "parse [message]",
		Short: "Parse an order message",
		Long:  "Extracts name, phone, address, size, pieces and COD amount from a customer message given as arguments or on stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			if strings.TrimSpace(text) == "" {
				return errors.New("no message given")
			}

			var ai anthropic.Client
			if assist {
				key := os.Getenv("ANTHROPIC_API_KEY")
				if key == "" {
					return errors.New("--ai needs ANTHROPIC_API_KEY")
				}
				ai = anthropic.NewClient(key)
			}

			svc := orders.NewService(kv.NewMemoryStore(), ai, nil, opts.log.Named("svc.orders"))
			order := svc.Parse(cmd.Context(), text, assist)

			missing := order.Missing()
			if missing == nil {
				missing = []string{}
			}
			return printJSON(cmd, parseResult{Order: order, Missing: missing, Text: order.Text()})
		},
	}
	cmd.Flags().BoolVar(&assist, "ai", false, "complete missing fields with the Anthropic API")
	return cmd
}

package cli

import (
	"encoding/json"
	"fmt"

	"github.com/UnknownOlympus/locator/internal/config"
	"github.com/UnknownOlympus/locator/internal/models"
	"github.com/UnknownOlympus/locator/internal/service"
	"github.com/spf13/cobra"
)

type resolveOptions struct {
	address   models.Address
	providers []string
	useCache  bool
}

type resolveOutput struct {
	Coordinates *models.Coordinates `json:"coordinates"`
	Source      string              `json:"source"`
	Provider    string              `json:"provider,omitempty"`
}

func newResolveCommand() *cobra.Command {
	opts := resolveOptions{}

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a single address and print the result as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := config.MustLoad()
			logger := setupLogger(cfg.Env, cmd.ErrOrStderr())

			application, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer application.Close()

			req := service.GeocodeRequest{Address: opts.address, Providers: opts.providers}
			if cmd.Flags().Changed("use-cache") {
				req.UseCache = &opts.useCache
			}

			resolution, err := application.service.Geocode(ctx, req)
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			if err = encoder.Encode(resolveOutput{
				Coordinates: resolution.Coordinates,
				Source:      string(resolution.Source),
				Provider:    resolution.Provider,
			}); err != nil {
				return fmt.Errorf("writing result: %w", err)
			}

			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.address.Country, "country", "", "ISO country code, 2 or 3 letters")
	flags.StringVar(&opts.address.City, "city", "", "city or locality")
	flags.StringVar(&opts.address.Street, "street", "", "street line including the house number")
	flags.StringVar(&opts.address.Postcode, "postcode", "", "postal code")
	flags.StringSliceVar(&opts.providers, "providers", nil, "providers to try, in order (default from configuration)")
	flags.BoolVar(&opts.useCache, "use-cache", false, "answer from a cached hit when there is one (default from configuration)")

	return cmd
}

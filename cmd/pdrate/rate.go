package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/warp/pd-rating/api"
	"github.com/warp/pd-rating/rating"
)

type rateFlags struct {
	occupation   string
	age          int
	dateOfBirth  string
	dateOfInjury string
	impairments  []string
	format       string
}

func newRateCmd(a *app) *cobra.Command {
	f := &rateFlags{}

	cmd := &cobra.Command{
		Use:   "rate [request.json|-]",
		Short: "Rate a claimant",
		Long: `Rate a claimant from flags, or from a JSON request file ("-" reads stdin)
in the same shape as POST /api/ratings.

Impairments are given as BODY_PART=WPI[,PAIN[,APPORTIONMENT]], e.g.
  -i "lumbar spine=10,2" -i "left knee=20,1,25"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.request(cmd, args)
			if err != nil {
				return exitError(2, "%v", err)
			}
			return runRate(cmd, a, req, f.format)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.occupation, "occupation", "", "Occupation title or group code such as 380H")
	flags.IntVar(&f.age, "age", 0, "Age on the date of injury")
	flags.StringVar(&f.dateOfBirth, "dob", "", "Date of birth (YYYY-MM-DD); with --doi, replaces --age")
	flags.StringVar(&f.dateOfInjury, "doi", "", "Date of injury (YYYY-MM-DD)")
	flags.StringArrayVarP(&f.impairments, "impairment", "i", nil, "Impairment BODY_PART=WPI[,PAIN[,APPORTIONMENT]] (repeatable)")
	flags.StringVar(&f.format, "format", "text", "Output format: text or json")

	return cmd
}

func (f *rateFlags) request(cmd *cobra.Command, args []string) (api.RatingRequest, error) {
	if len(args) == 1 {
		return readRequest(cmd.InOrStdin(), args[0])
	}

	req := api.RatingRequest{
		Occupation:   f.occupation,
		DateOfBirth:  f.dateOfBirth,
		DateOfInjury: f.dateOfInjury,
	}
	if cmd.Flags().Changed("age") {
		req.Age = api.Ptr(f.age)
	}
	for _, s := range f.impairments {
		imp, err := parseImpairment(s)
		if err != nil {
			return api.RatingRequest{}, err
		}
		req.Impairments = append(req.Impairments, imp)
	}
	return req, nil
}

func readRequest(stdin io.Reader, path string) (api.RatingRequest, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return api.RatingRequest{}, fmt.Errorf("failed to read request: %w", err)
	}

	var req api.RatingRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return api.RatingRequest{}, fmt.Errorf("invalid request JSON: %w", err)
	}
	return req, nil
}

// parseImpairment parses BODY_PART=WPI[,PAIN[,APPORTIONMENT]].
func parseImpairment(s string) (api.ImpairmentDTO, error) {
	i := strings.LastIndex(s, "=")
	if i <= 0 {
		return api.ImpairmentDTO{}, fmt.Errorf("impairment %q: expected BODY_PART=WPI", s)
	}
	imp := api.ImpairmentDTO{BodyPart: strings.TrimSpace(s[:i])}

	parts := strings.Split(s[i+1:], ",")
	if len(parts) > 3 {
		return api.ImpairmentDTO{}, fmt.Errorf("impairment %q: at most WPI,PAIN,APPORTIONMENT", s)
	}
	wpi := 0.0
	dst := []*float64{&wpi, &imp.PainAddon, &imp.ApportionmentPercent}
	for j, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return api.ImpairmentDTO{}, fmt.Errorf("impairment %q: bad number %q", s, p)
		}
		*dst[j] = v
	}
	imp.WPI = &wpi
	return imp, nil
}

func runRate(cmd *cobra.Command, a *app, req api.RatingRequest, format string) error {
	if format != "text" && format != "json" {
		return exitError(2, "unknown format %q", format)
	}

	rr, err := req.ToRequest()
	if err != nil {
		return exitError(2, "%v", err)
	}

	ctx := cmd.Context()
	engine, closeFn, err := a.cfg.NewEngine(ctx, a.logger(cmd))
	if err != nil {
		return exitError(3, "failed to load engine: %v", err)
	}
	defer closeFn()

	res, err := engine.Compute(ctx, rr)
	if err != nil {
		return exitError(4, "rating failed: %v", err)
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(api.ToRatingDTO(res))
	}
	_, err = io.WriteString(out, rating.Report(res))
	return err
}

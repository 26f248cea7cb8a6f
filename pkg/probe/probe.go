// Package probe prints the networks the deployer knows about and, on request,
// checks that their endpoints answer with the expected chain.
package probe

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/aidroute/deployer/pkg/config"
	"github.com/aidroute/deployer/pkg/ethereum"
)

const (
	redacted = "<redacted>"
	none     = "<none>"
)

// Fetcher asks an endpoint about itself.
type Fetcher func(ctx context.Context, url string) (*ethereum.NodeInfo, error)

// Options configures a Probe.
type Options struct {
	// Fetch defaults to ethereum.ProbeEndpoint.
	Fetch Fetcher
	// Timeout bounds each endpoint check.
	Timeout time.Duration
	// Concurrency caps simultaneous endpoint checks.
	Concurrency int
}

// Probe reports on the configured networks. It never changes anything.
type Probe struct {
	log  logrus.FieldLogger
	cfg  *config.Config
	env  config.Env
	out  io.Writer
	opts Options
}

// New creates a Probe writing to out.
func New(log logrus.FieldLogger, cfg *config.Config, env config.Env, out io.Writer, opts Options) *Probe {
	if opts.Fetch == nil {
		opts.Fetch = ethereum.ProbeEndpoint
	}

	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}

	return &Probe{
		log:  log.WithField("component", "probe"),
		cfg:  cfg,
		env:  env,
		out:  out,
		opts: opts,
	}
}

// Print writes the configured network names followed by the selected
// network's resolved configuration. Credentials are never printed.
func (p *Probe) Print(selected string) error {
	resolved, err := p.cfg.Resolve(p.env, selected)
	if err != nil {
		return err
	}

	fmt.Fprintf(p.out, "Available networks: %s\n", strings.Join(p.cfg.NetworkNames(), ", "))
	fmt.Fprintf(p.out, "Selected network: %s\n", resolved.NetworkName)

	table := tablewriter.NewWriter(p.out)
	table.SetHeader([]string{"Setting", "Value"})
	table.SetAutoWrapText(false)
	table.SetBorders(tablewriter.Border{
		Left:   false,
		Right:  false,
		Top:    true,
		Bottom: true,
	})
	table.AppendBulk(p.describe(resolved))
	table.Render()

	return nil
}

func (p *Probe) describe(r *config.Resolved) [][]string {
	chainID := "from node"
	if r.ChainID != 0 {
		chainID = fmt.Sprintf("%d (%s)", r.ChainID, ethereum.NetworkName(r.ChainID))
	}

	rpcURL := RedactURL(r.RPCURL)
	if r.Type == config.NetworkTypeSimulated {
		rpcURL = "in-process"
	}

	rows := [][]string{
		{"Type", string(r.Type)},
		{"RPC URL", rpcURL},
		{"Chain ID", chainID},
		{"Private Key", secret(r.PrivateKey)},
		{"Account", account(r.PrivateKey)},
		{"Asset Address", r.AssetAddress},
		{"Etherscan API Key", secret(r.EtherscanAPIKey)},
		{"Verification", strconv.FormatBool(r.VerificationEnabled(p.cfg.Deployment.VerifyNetwork))},
	}

	if r.Type == config.NetworkTypeSimulated {
		rows = append(rows, []string{"Block Time", r.BlockTime.String()})
	}

	return rows
}

// CheckResult is the outcome of checking one endpoint.
type CheckResult struct {
	Network         string
	URL             string
	ExpectedChainID uint64
	Info            *ethereum.NodeInfo
	Err             error
}

// Mismatch reports whether the node serves a different chain than configured.
func (c CheckResult) Mismatch() bool {
	return c.Err == nil && c.ExpectedChainID != 0 && c.Info.ChainID != c.ExpectedChainID
}

// Check dials every http network concurrently and prints a reachability
// table. Unreachable endpoints are reported, not returned as errors.
func (p *Probe) Check(ctx context.Context) ([]CheckResult, error) {
	var names []string

	for _, name := range p.cfg.NetworkNames() {
		if p.cfg.Networks[name].Type == config.NetworkTypeHTTP {
			names = append(names, name)
		}
	}

	results := make([]CheckResult, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)

	for i, name := range names {
		resolved, err := p.cfg.Resolve(p.env, name)
		if err != nil {
			return nil, err
		}

		results[i] = CheckResult{
			Network:         name,
			URL:             resolved.RPCURL,
			ExpectedChainID: resolved.ChainID,
		}

		i, name := i, name

		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, p.opts.Timeout)
			defer cancel()

			info, err := p.opts.Fetch(cctx, results[i].URL)
			if err != nil {
				p.log.WithError(err).WithField("network", name).Debug("Endpoint check failed")

				results[i].Err = err

				return nil
			}

			results[i].Info = info

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Network < results[j].Network })

	p.printChecks(results)

	return results, nil
}

func (p *Probe) printChecks(results []CheckResult) {
	rows := make([][]string, 0, len(results))

	for _, r := range results {
		row := []string{r.Network, RedactURL(r.URL), "", "", "", ""}

		if r.ExpectedChainID != 0 {
			row[2] = strconv.FormatUint(r.ExpectedChainID, 10)
		}

		if r.Err != nil {
			row[5] = "unreachable: " + r.Err.Error()
		} else {
			row[3] = strconv.FormatUint(r.Info.ChainID, 10)
			row[4] = string(r.Info.Client)
			row[5] = "ok"

			if r.Mismatch() {
				row[5] = "chain id mismatch"
			}
		}

		rows = append(rows, row)
	}

	table := tablewriter.NewWriter(p.out)
	table.SetHeader([]string{"Network", "URL", "Expected", "Reported", "Client", "Status"})
	table.SetAutoWrapText(false)
	table.AppendBulk(rows)
	table.Render()
}

// RedactURL keeps the scheme and host of an endpoint. Paths, queries and
// user info often carry API keys.
func RedactURL(raw string) string {
	if raw == "" {
		return none
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return redacted
	}

	out := u.Scheme + "://" + u.Host

	if (u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.User != nil {
		out += "/" + redacted
	}

	return out
}

func secret(v string) string {
	if v == "" {
		return none
	}

	return redacted
}

func account(key string) string {
	if key == "" {
		return none
	}

	pk, err := ethereum.ParsePrivateKey(key)
	if err != nil {
		return "invalid key"
	}

	return crypto.PubkeyToAddress(pk.PublicKey).Hex()
}

package verify

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/aidroute/deployer/internal/version"
)

const (
	statusOK = "1"

	resultPending  = "Pending in queue"
	resultVerified = "Pass - Verified"

	codeFormatStandardJSON = "solidity-standard-json-input"
)

var errPending = errors.New("verification pending")

// EtherscanOptions configures an Etherscan client.
type EtherscanOptions struct {
	// APIURL is the multichain (v2) endpoint, e.g. https://api.etherscan.io/v2/api.
	APIURL  string
	APIKey  string
	ChainID uint64
	// BuildInfoDir holds the build-info files the standard JSON input is taken from.
	BuildInfoDir string
	PollInterval time.Duration
	// Timeout bounds the whole verification, submission and polling included.
	Timeout time.Duration
}

// Response is the envelope every Etherscan API call returns. Result is a
// string on errors and for some actions, and an array for others.
type Response struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// SourceCode is one entry of a getsourcecode result.
type SourceCode struct {
	SourceCode           string `json:"SourceCode"`
	ABI                  string `json:"ABI"`
	ContractName         string `json:"ContractName"`
	CompilerVersion      string `json:"CompilerVersion"`
	OptimizationUsed     string `json:"OptimizationUsed"`
	Runs                 string `json:"Runs"`
	ConstructorArguments string `json:"ConstructorArguments"`
	EVMVersion           string `json:"EVMVersion"`
	LicenseType          string `json:"LicenseType"`
	Proxy                string `json:"Proxy"`
	Implementation       string `json:"Implementation"`
}

// Etherscan verifies contracts through the Etherscan API.
type Etherscan struct {
	log    logrus.FieldLogger
	client *resty.Client
	opts   EtherscanOptions
}

var _ Verifier = (*Etherscan)(nil)

// NewEtherscan creates an Etherscan client bound to one chain.
func NewEtherscan(log logrus.FieldLogger, opts EtherscanOptions) *Etherscan {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 3 * time.Second
	}

	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}

	return &Etherscan{
		log: log.WithFields(logrus.Fields{"component": "verify/etherscan", "chain_id": opts.ChainID}),
		client: resty.New().
			SetTimeout(30*time.Second).
			SetHeader("User-Agent", version.UserAgent()).
			SetQueryParam("chainid", strconv.FormatUint(opts.ChainID, 10)).
			SetQueryParam("apikey", opts.APIKey),
		opts: opts,
	}
}

// Verify submits the contract's standard JSON input and waits for the
// explorer's verdict. ErrAlreadyVerified is returned when source is already
// published for the address.
func (e *Etherscan) Verify(ctx context.Context, req Request) error {
	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	log := e.log.WithField("address", req.Address.Hex())

	verified, err := e.IsVerified(ctx, req.Address)
	if err != nil {
		return err
	}

	if verified {
		return ErrAlreadyVerified
	}

	info, err := FindBuildInfo(e.opts.BuildInfoDir, req.SourceName, req.ContractName)
	if err != nil {
		return err
	}

	guid, err := e.submit(ctx, info, req)
	if err != nil {
		return err
	}

	log.WithField("guid", guid).Info("Submitted source for verification")

	return e.waitForResult(ctx, guid)
}

// IsVerified reports whether the explorer already has source for address.
func (e *Etherscan) IsVerified(ctx context.Context, address common.Address) (bool, error) {
	resp, err := e.get(ctx, map[string]string{
		"module":  "contract",
		"action":  "getsourcecode",
		"address": address.Hex(),
	})
	if err != nil {
		return false, fmt.Errorf("failed to check verification status: %w", err)
	}

	if resp.Status != statusOK {
		return false, fmt.Errorf("getsourcecode: %s", resultMessage(resp))
	}

	var sources []SourceCode

	if err := json.Unmarshal(resp.Result, &sources); err != nil {
		return false, fmt.Errorf("failed to decode getsourcecode result: %w", err)
	}

	return len(sources) > 0 && sources[0].SourceCode != "", nil
}

func (e *Etherscan) submit(ctx context.Context, info *BuildInfo, req Request) (string, error) {
	resp, err := e.post(ctx, map[string]string{
		"module":                "contract",
		"action":                "verifysourcecode",
		"contractaddress":       req.Address.Hex(),
		"sourceCode":            string(info.Input),
		"codeformat":            codeFormatStandardJSON,
		"contractname":          req.FullyQualifiedName(),
		"compilerversion":       info.CompilerVersion(),
		"constructorArguements": hex.EncodeToString(req.ConstructorArgs),
	})
	if err != nil {
		return "", fmt.Errorf("failed to submit verification: %w", err)
	}

	message := resultMessage(resp)

	if resp.Status != statusOK {
		if isAlreadyVerifiedMessage(message) {
			return "", ErrAlreadyVerified
		}

		return "", fmt.Errorf("%w: %s", ErrVerificationFailed, message)
	}

	return message, nil
}

func (e *Etherscan) waitForResult(ctx context.Context, guid string) error {
	b := backoff.WithContext(backoff.NewConstantBackOff(e.opts.PollInterval), ctx)

	return backoff.Retry(func() error {
		resp, err := e.get(ctx, map[string]string{
			"module": "contract",
			"action": "checkverifystatus",
			"guid":   guid,
		})
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to check verification status: %w", err))
		}

		message := resultMessage(resp)

		switch {
		case strings.HasPrefix(message, resultPending):
			e.log.WithField("guid", guid).Debug("Verification pending")

			return errPending
		case strings.HasPrefix(message, resultVerified):
			return nil
		case isAlreadyVerifiedMessage(message):
			return backoff.Permanent(ErrAlreadyVerified)
		default:
			return backoff.Permanent(fmt.Errorf("%w: %s", ErrVerificationFailed, message))
		}
	}, b)
}

func (e *Etherscan) get(ctx context.Context, params map[string]string) (*Response, error) {
	resp, err := e.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(e.opts.APIURL)
	if err != nil {
		return nil, err
	}

	return decodeResponse(resp)
}

func (e *Etherscan) post(ctx context.Context, form map[string]string) (*Response, error) {
	resp, err := e.client.R().
		SetContext(ctx).
		SetFormData(form).
		Post(e.opts.APIURL)
	if err != nil {
		return nil, err
	}

	return decodeResponse(resp)
}

func decodeResponse(resp *resty.Response) (*Response, error) {
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected HTTP status %d", resp.StatusCode())
	}

	var out Response

	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &out, nil
}

// resultMessage returns Result when it is a string, otherwise Message.
func resultMessage(resp *Response) string {
	var result string

	if err := json.Unmarshal(resp.Result, &result); err == nil && result != "" {
		return result
	}

	return resp.Message
}

func isAlreadyVerifiedMessage(message string) bool {
	return strings.Contains(strings.ToLower(message), "already verified")
}

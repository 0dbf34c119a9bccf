package coupon

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
)

// A coupon pack is a pgzip-compressed file holding the set of redeemable
// codes as a bloom filter plus the rules to apply to them. The bloom filter
// admits a small false-positive rate; that only means a bogus code passes the
// offline check and is rejected by the backend at order placement.
//
// Layout after decompression: a big-endian uint32 header length, the JSON
// header (rules), then the serialized bloom filter.

// Pack holds the compiled promo code set and its discount rules.
type Pack struct {
	filter *bloom.BloomFilter
	rules  map[string]Rule
	def    Rule
}

// NewPack creates an empty pack sized for the expected number of codes.
// def is the rule applied to valid codes without a dedicated rule.
func NewPack(expectedCodes uint, falsePositiveRate float64, def Rule) *Pack {
	return &Pack{
		filter: bloom.NewWithEstimates(expectedCodes, falsePositiveRate),
		rules:  make(map[string]Rule),
		def:    def,
	}
}

// AddCode marks a code as redeemable.
func (p *Pack) AddCode(code string) {
	p.filter.AddString(code)
}

// SetRule attaches a dedicated rule to a code. The code is also marked
// redeemable.
func (p *Pack) SetRule(code string, r Rule) {
	r.Code = code
	p.rules[code] = r
	p.filter.AddString(code)
}

// Rule resolves the rule for a code. It returns ErrInvalidCoupon when the
// code is not in the pack.
func (p *Pack) Rule(code string) (*Rule, error) {
	if !p.filter.TestString(code) {
		return nil, ErrInvalidCoupon
	}
	if r, ok := p.rules[code]; ok {
		return &r, nil
	}
	def := p.def
	def.Code = code
	return &def, nil
}

// packHeader is the JSON header of the serialized pack.
type packHeader struct {
	Version     int        `json:"version"`
	DefaultRule packRule   `json:"default_rule"`
	Rules       []packRule `json:"rules,omitempty"`
}

// packRule is the wire form of a Rule; the decimal value travels as a string.
type packRule struct {
	Code         string     `json:"code,omitempty"`
	DiscountType string     `json:"discount_type"`
	Value        string     `json:"value"`
	MinItems     int        `json:"min_items,omitempty"`
	Description  string     `json:"description,omitempty"`
	ValidFrom    *time.Time `json:"valid_from,omitempty"`
	ValidUntil   *time.Time `json:"valid_until,omitempty"`
}

const packVersion = 1

// WriteTo serializes the pack, compressed, to w.
func (p *Pack) WriteTo(w io.Writer) error {
	header := packHeader{
		Version:     packVersion,
		DefaultRule: toPackRule(p.def),
	}
	for _, r := range p.rules {
		header.Rules = append(header.Rules, toPackRule(r))
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return errors.Wrap(err, "marshal pack header")
	}

	gz := pgzip.NewWriter(w)

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(headerJSON)))
	if _, err := gz.Write(lenBuf[:]); err != nil {
		return errors.Wrap(err, "write header length")
	}
	if _, err := gz.Write(headerJSON); err != nil {
		return errors.Wrap(err, "write header")
	}
	if _, err := p.filter.WriteTo(gz); err != nil {
		return errors.Wrap(err, "write bloom filter")
	}

	if err := gz.Close(); err != nil {
		return errors.Wrap(err, "flush pack")
	}
	return nil
}

// Save writes the pack to path.
func (p *Pack) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create pack file %s", path)
	}
	if err := p.WriteTo(f); err != nil {
		_ = f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "close pack file")
}

// ReadPack deserializes a pack from r.
func ReadPack(r io.Reader) (*Pack, error) {
	gz, err := pgzip.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "open pack stream")
	}
	defer func() { _ = gz.Close() }()

	var lenBuf [4]byte
	if _, err := io.ReadFull(gz, lenBuf[:]); err != nil {
		return nil, errors.Wrap(err, "read header length")
	}
	headerJSON := make([]byte, binary.BigEndian.Uint32(lenBuf[:]))
	if _, err := io.ReadFull(gz, headerJSON); err != nil {
		return nil, errors.Wrap(err, "read header")
	}

	var header packHeader
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, errors.Wrap(err, "parse pack header")
	}
	if header.Version != packVersion {
		return nil, errors.Errorf("unsupported pack version %d", header.Version)
	}

	def, err := fromPackRule(header.DefaultRule)
	if err != nil {
		return nil, errors.Wrap(err, "parse default rule")
	}

	p := &Pack{
		filter: &bloom.BloomFilter{},
		rules:  make(map[string]Rule, len(header.Rules)),
		def:    def,
	}
	for _, pr := range header.Rules {
		r, err := fromPackRule(pr)
		if err != nil {
			return nil, errors.Wrapf(err, "parse rule %s", pr.Code)
		}
		p.rules[r.Code] = r
	}

	if _, err := p.filter.ReadFrom(gz); err != nil {
		return nil, errors.Wrap(err, "read bloom filter")
	}
	return p, nil
}

// OpenPack loads a pack from path.
func OpenPack(path string) (*Pack, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open pack file %s", path)
	}
	defer func() { _ = f.Close() }()

	return ReadPack(f)
}

// ParseRules parses a JSON array of rules in the pack header format. It is
// used by the pack builder to read dedicated-rule files.
func ParseRules(data []byte) ([]Rule, error) {
	var wire []packRule
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, errors.Wrap(err, "parse rules")
	}

	out := make([]Rule, len(wire))
	for i, pr := range wire {
		if pr.Code == "" {
			return nil, errors.Errorf("rule %d has no code", i)
		}
		r, err := fromPackRule(pr)
		if err != nil {
			return nil, errors.Wrapf(err, "parse rule %s", pr.Code)
		}
		out[i] = r
	}
	return out, nil
}

func toPackRule(r Rule) packRule {
	return packRule{
		Code:         r.Code,
		DiscountType: string(r.DiscountType),
		Value:        r.Value.String(),
		MinItems:     r.MinItems,
		Description:  r.Description,
		ValidFrom:    r.ValidFrom,
		ValidUntil:   r.ValidUntil,
	}
}

func fromPackRule(pr packRule) (Rule, error) {
	value, err := decimal.NewFromString(pr.Value)
	if err != nil {
		return Rule{}, errors.Wrap(err, "parse value")
	}
	return Rule{
		Code:         pr.Code,
		DiscountType: DiscountType(pr.DiscountType),
		Value:        value,
		MinItems:     pr.MinItems,
		Description:  pr.Description,
		ValidFrom:    pr.ValidFrom,
		ValidUntil:   pr.ValidUntil,
	}, nil
}

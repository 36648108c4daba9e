package catalog

import (
	"io"
	"os"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
)

// CouponPrefilter is a bloom-filter membership pre-check over the set of
// known-valid coupon codes. A definite miss lets the engine reject a coupon
// locally without a pricing round trip; a hit still has to be confirmed by
// the server (false positives are possible, false negatives are not).
type CouponPrefilter struct {
	filter *bloom.BloomFilter
}

// NewCouponPrefilter creates an empty prefilter sized for the expected number
// of codes at the given false-positive rate.
func NewCouponPrefilter(capacity uint, fpr float64) *CouponPrefilter {
	return &CouponPrefilter{filter: bloom.NewWithEstimates(capacity, fpr)}
}

// Add inserts a coupon code. Codes are case-insensitive.
func (f *CouponPrefilter) Add(code string) {
	f.filter.AddString(strings.ToUpper(code))
}

// MayContain reports whether the code could be valid. False means the code is
// definitely unknown.
func (f *CouponPrefilter) MayContain(code string) bool {
	return f.filter.TestString(strings.ToUpper(code))
}

// WriteTo serializes the filter gzip-compressed to w.
func (f *CouponPrefilter) WriteTo(w io.Writer) error {
	gz := pgzip.NewWriter(w)
	if _, err := f.filter.WriteTo(gz); err != nil {
		return errors.Wrap(err, "write filter")
	}
	return errors.Wrap(gz.Close(), "close gzip writer")
}

// ReadCouponPrefilter deserializes a filter written by WriteTo.
func ReadCouponPrefilter(r io.Reader) (*CouponPrefilter, error) {
	gz, err := pgzip.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "open gzip reader")
	}
	defer gz.Close()

	var filter bloom.BloomFilter
	if _, err := filter.ReadFrom(gz); err != nil {
		return nil, errors.Wrap(err, "read filter")
	}
	return &CouponPrefilter{filter: &filter}, nil
}

// LoadCouponPrefilter reads a serialized prefilter from the given path.
func LoadCouponPrefilter(path string) (*CouponPrefilter, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open prefilter %s", path)
	}
	defer file.Close()

	return ReadCouponPrefilter(file)
}

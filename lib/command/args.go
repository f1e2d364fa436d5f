package command

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/lib/value"
)

// --------------------------------------------------------------------------
// Argument Parsing
// --------------------------------------------------------------------------

// parseInt parses an integer argument
func parseInt(b []byte) (int64, *Error) {
	n, ok := value.ParseInt64(b)
	if !ok {
		return 0, ErrNotInteger
	}
	return n, nil
}

// parseFloat parses a float argument at value.FloatPrec
func parseFloat(b []byte) (*big.Float, *Error) {
	f, ok := value.ParseExtFloat(b)
	if !ok {
		return nil, ErrNotFloat
	}
	return f, nil
}

// expireUnit tells how an expire argument is interpreted
type expireUnit uint8

const (
	unitSeconds expireUnit = iota // relative, seconds (EX, SETEX)
	unitMillis                    // relative, milliseconds (PX, PSETEX)
	unitUnixSeconds               // absolute, unix seconds (EXAT)
	unitUnixMillis                // absolute, unix milliseconds (PXAT)
)

func (u expireUnit) relative() bool {
	return u == unitSeconds || u == unitMillis
}

// absoluteExpire converts an expire argument into an absolute unix time in milliseconds.
// Values <= 0 and values that overflow once converted are invalid.
func absoluteExpire(cmd string, arg []byte, unit expireUnit, now int64) (int64, *Error) {
	n, err := parseInt(arg)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, errInvalidExpire(cmd)
	}
	if unit == unitSeconds || unit == unitUnixSeconds {
		if n > math.MaxInt64/1000 {
			return 0, errInvalidExpire(cmd)
		}
		n *= 1000
	}
	if unit.relative() {
		if n > math.MaxInt64-now {
			return 0, errInvalidExpire(cmd)
		}
		n += now
	}
	return n, nil
}

// setOptions are the parsed options of SET
type setOptions struct {
	nx, xx   bool
	keepTTL  bool
	expireAt int64 // absolute, 0 = no expiry option
}

var setExpireUnits = map[string]expireUnit{
	"EX": unitSeconds, "PX": unitMillis, "EXAT": unitUnixSeconds, "PXAT": unitUnixMillis,
}

// parseSetOptions parses [NX|XX] [EX s|PX ms|EXAT ts|PXAT ts] [KEEPTTL]
func parseSetOptions(cmd string, args [][]byte, now int64) (setOptions, *Error) {
	var opts setOptions
	expireSeen := false

	for i := 0; i < len(args); i++ {
		opt := strings.ToUpper(string(args[i]))
		switch opt {
		case "NX":
			if opts.xx {
				return opts, ErrSyntax
			}
			opts.nx = true
		case "XX":
			if opts.nx {
				return opts, ErrSyntax
			}
			opts.xx = true
		case "KEEPTTL":
			if expireSeen {
				return opts, ErrSyntax
			}
			opts.keepTTL = true
		case "EX", "PX", "EXAT", "PXAT":
			if expireSeen || opts.keepTTL || i+1 >= len(args) {
				return opts, ErrSyntax
			}
			unit := setExpireUnits[opt]
			at, err := absoluteExpire(cmd, args[i+1], unit, now)
			if err != nil {
				return opts, err
			}
			expireSeen = true
			opts.expireAt = at
			i++
		default:
			return opts, ErrSyntax
		}
	}
	return opts, nil
}

// --------------------------------------------------------------------------
// Keyspace Helpers
// --------------------------------------------------------------------------

// lookupString returns the string value of key, nil if the key is absent.
// Keys holding another type fail with ErrWrongType.
func (c *call) lookupString(key string) (*value.Value, *Error) {
	obj, ok := c.db.keys.Lookup(key, c.now)
	if !ok {
		return nil, nil
	}
	if obj.Type != db.TypeString {
		return nil, ErrWrongType
	}
	return obj.Val, nil
}

// install stores v under key. keepTTL keeps the expiry of an existing key, otherwise it is
// cleared.
func (c *call) install(key string, v *value.Value, keepTTL bool) {
	obj := db.StringObject(v)
	if !keepTTL || !c.db.keys.Overwrite(key, obj, c.now) {
		c.db.keys.SetKey(key, obj, c.now)
	}
	c.db.stats.valueSize.Update(int64(v.Len()))
}

// checkSize fails with ErrSizeLimit if a value of length n is not allowed
func checkSize(n int64) *Error {
	if n > value.MaxLen {
		return ErrSizeLimit
	}
	return nil
}

// checkRangeSize fails if writing n bytes at offset would grow a value past value.MaxLen.
// The comparison is arranged so that offsets close to math.MaxInt64 cannot overflow.
func checkRangeSize(offset int64, n int) *Error {
	if offset > value.MaxLen-int64(n) {
		return ErrSizeLimit
	}
	return nil
}

func itob(n int64) []byte {
	return strconv.AppendInt(nil, n, 10)
}

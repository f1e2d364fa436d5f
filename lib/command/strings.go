package command

import (
	"math"
	"math/big"

	"github.com/ValentinKolb/sKV/lib/notify"
	"github.com/ValentinKolb/sKV/lib/value"
)

// --------------------------------------------------------------------------
// SET Family
// --------------------------------------------------------------------------

// genericSet implements SET, SETNX, SETEX and PSETEX. It reports false if the NX or XX
// condition aborted the command.
func genericSet(c *call, key string, raw []byte, opts setOptions) (bool, *Error) {
	if err := checkSize(int64(len(raw))); err != nil {
		return false, err
	}

	exists := c.db.keys.Has(key, c.now)
	if (opts.nx && exists) || (opts.xx && !exists) {
		return false, nil
	}

	if opts.expireAt != 0 && opts.expireAt <= c.now {
		// an absolute expiry in the past leaves nothing behind
		if c.db.keys.Delete(key, c.now) {
			c.notify(notify.ClassDel, key)
			c.rewrite([]byte("DEL"), []byte(key))
		}
		return true, nil
	}

	c.install(key, value.EncodeCandidate(raw), opts.keepTTL)
	c.notify(notify.ClassSet, key)

	prop := [][]byte{[]byte("SET"), []byte(key), raw}
	switch {
	case opts.expireAt != 0:
		c.db.keys.SetExpire(key, opts.expireAt, c.now)
		c.notify(notify.ClassExpire, key)
		prop = append(prop, []byte("PXAT"), itob(opts.expireAt))
	case opts.keepTTL:
		prop = append(prop, []byte("KEEPTTL"))
	}
	c.rewrite(prop...)
	return true, nil
}

// SET key value [NX|XX] [EX seconds|PX milliseconds|EXAT unix-seconds|PXAT unix-ms] [KEEPTTL]
func setCommand(c *call) Reply {
	opts, err := parseSetOptions(c.name, c.argv[3:], c.now)
	if err != nil {
		return Fail(err)
	}
	ok, err := genericSet(c, string(c.argv[1]), c.argv[2], opts)
	if err != nil {
		return Fail(err)
	}
	if !ok {
		return Null()
	}
	return OK()
}

// SETNX key value
func setnxCommand(c *call) Reply {
	ok, err := genericSet(c, string(c.argv[1]), c.argv[2], setOptions{nx: true})
	if err != nil {
		return Fail(err)
	}
	return Bool(ok)
}

// SETEX key seconds value
func setexCommand(c *call) Reply {
	return setWithTTL(c, unitSeconds)
}

// PSETEX key milliseconds value
func psetexCommand(c *call) Reply {
	return setWithTTL(c, unitMillis)
}

func setWithTTL(c *call, unit expireUnit) Reply {
	at, err := absoluteExpire(c.name, c.argv[2], unit, c.now)
	if err != nil {
		return Fail(err)
	}
	if _, err := genericSet(c, string(c.argv[1]), c.argv[3], setOptions{expireAt: at}); err != nil {
		return Fail(err)
	}
	return OK()
}

// --------------------------------------------------------------------------
// GET Family
// --------------------------------------------------------------------------

// GET key
func getCommand(c *call) Reply {
	v, err := c.lookupString(string(c.argv[1]))
	if err != nil {
		return Fail(err)
	}
	if v == nil {
		c.db.stats.misses.Inc(1)
		return Null()
	}
	c.db.stats.hits.Inc(1)
	return Bulk(v.Bytes())
}

// GETSET key value
func getsetCommand(c *call) Reply {
	key, raw := string(c.argv[1]), c.argv[2]
	if err := checkSize(int64(len(raw))); err != nil {
		return Fail(err)
	}

	old, err := c.lookupString(key)
	if err != nil {
		return Fail(err)
	}
	reply := Null()
	if old != nil {
		// copy before the old value is released by the install
		reply = Bulk(old.Bytes())
	}

	c.install(key, value.EncodeCandidate(raw), false)
	c.notify(notify.ClassSet, key)
	c.propagate()
	return reply
}

// MGET key [key ...]
func mgetCommand(c *call) Reply {
	items := make([]Reply, 0, len(c.argv)-1)
	for _, k := range c.argv[1:] {
		v, err := c.lookupString(string(k))
		if err != nil || v == nil {
			c.db.stats.misses.Inc(1)
			items = append(items, Null())
			continue
		}
		c.db.stats.hits.Inc(1)
		items = append(items, Bulk(v.Bytes()))
	}
	return Array(items...)
}

// MSET key value [key value ...]
func msetCommand(c *call) Reply {
	if err := checkPairs(c); err != nil {
		return Fail(err)
	}
	msetPairs(c)
	return OK()
}

// MSETNX key value [key value ...]
func msetnxCommand(c *call) Reply {
	if err := checkPairs(c); err != nil {
		return Fail(err)
	}
	for i := 1; i < len(c.argv); i += 2 {
		if c.db.keys.Has(string(c.argv[i]), c.now) {
			return Int(0)
		}
	}
	msetPairs(c)
	return Int(1)
}

// checkPairs validates the key value pairs of MSET and MSETNX before anything is written
func checkPairs(c *call) *Error {
	if (len(c.argv)-1)%2 != 0 {
		return NewError(KindArity, "wrong number of arguments for MSET")
	}
	for i := 2; i < len(c.argv); i += 2 {
		if err := checkSize(int64(len(c.argv[i]))); err != nil {
			return err
		}
	}
	return nil
}

func msetPairs(c *call) {
	for i := 1; i < len(c.argv); i += 2 {
		key := string(c.argv[i])
		c.install(key, value.EncodeCandidate(c.argv[i+1]), false)
		c.notify(notify.ClassSet, key)
	}
	c.propagate()
}

// --------------------------------------------------------------------------
// Ranges
// --------------------------------------------------------------------------

// SETRANGE key offset value
func setrangeCommand(c *call) Reply {
	key, fragment := string(c.argv[1]), c.argv[3]
	offset, err := parseInt(c.argv[2])
	if err != nil {
		return Fail(err)
	}
	if offset < 0 {
		return Fail(ErrOffsetRange)
	}

	v, err := c.lookupString(key)
	if err != nil {
		return Fail(err)
	}

	if v == nil {
		if len(fragment) == 0 {
			return Int(0)
		}
		if err := checkRangeSize(offset, len(fragment)); err != nil {
			return Fail(err)
		}
		v = value.NewRaw(nil)
		v.WriteAt(int(offset), fragment)
		c.install(key, v, false)
	} else {
		if len(fragment) == 0 {
			return Int(int64(v.Len()))
		}
		if err := checkRangeSize(offset, len(fragment)); err != nil {
			return Fail(err)
		}
		v = value.EnsureExclusive(c.db.keys, key, v)
		v.WriteAt(int(offset), fragment)
	}

	c.notify(notify.ClassSetRange, key)
	c.propagate()
	return Int(int64(v.Len()))
}

// GETRANGE key start end
func getrangeCommand(c *call) Reply {
	start, err := parseInt(c.argv[2])
	if err != nil {
		return Fail(err)
	}
	end, err := parseInt(c.argv[3])
	if err != nil {
		return Fail(err)
	}

	v, err := c.lookupString(string(c.argv[1]))
	if err != nil {
		return Fail(err)
	}
	if v == nil {
		return Bulk([]byte{})
	}
	return Bulk(byteRange(v.Bytes(), start, end))
}

// byteRange returns the inclusive span [start, end] of b. Negative indices count from the end.
func byteRange(b []byte, start, end int64) []byte {
	if start < 0 && end < 0 && start > end {
		return []byte{}
	}
	n := int64(len(b))
	if start < 0 {
		start += n
	}
	if end < 0 {
		end += n
	}
	if start < 0 {
		start = 0
	}
	if end < 0 {
		end = 0
	}
	if end >= n {
		end = n - 1
	}
	if start > end || n == 0 {
		return []byte{}
	}
	return b[start : end+1]
}

// --------------------------------------------------------------------------
// Counters
// --------------------------------------------------------------------------

// INCR key
func incrCommand(c *call) Reply {
	return incrDecr(c, 1)
}

// DECR key
func decrCommand(c *call) Reply {
	return incrDecr(c, -1)
}

// INCRBY key increment
func incrbyCommand(c *call) Reply {
	delta, err := parseInt(c.argv[2])
	if err != nil {
		return Fail(err)
	}
	return incrDecr(c, delta)
}

// DECRBY key decrement
func decrbyCommand(c *call) Reply {
	delta, err := parseInt(c.argv[2])
	if err != nil {
		return Fail(err)
	}
	if delta == math.MinInt64 {
		return Fail(NewError(KindOverflow, "decrement would overflow"))
	}
	return incrDecr(c, -delta)
}

func incrDecr(c *call, delta int64) Reply {
	key := string(c.argv[1])
	v, err := c.lookupString(key)
	if err != nil {
		return Fail(err)
	}

	var cur int64
	if v != nil {
		n, ok := v.Int64()
		if !ok {
			return Fail(ErrNotInteger)
		}
		cur = n
	}

	if (delta < 0 && cur < 0 && delta < math.MinInt64-cur) ||
		(delta > 0 && cur > 0 && delta > math.MaxInt64-cur) {
		return Fail(ErrOverflow)
	}
	n := cur + delta

	_, pooled := value.Shared(n)
	if v != nil && v.Exclusive() && v.Encoding() == value.EncInt && !pooled {
		v.SetInt(n)
	} else {
		c.install(key, value.FromInt64(n), v != nil)
	}

	c.notify(notify.ClassIncrBy, key)
	c.propagate()
	return Int(n)
}

// INCRBYFLOAT key increment
func incrbyfloatCommand(c *call) Reply {
	key := string(c.argv[1])
	v, err := c.lookupString(key)
	if err != nil {
		return Fail(err)
	}

	cur := new(big.Float).SetPrec(value.FloatPrec)
	if v != nil {
		f, ok := v.ExtFloat()
		if !ok {
			return Fail(ErrNotFloat)
		}
		cur = f
	}
	incr, err := parseFloat(c.argv[2])
	if err != nil {
		return Fail(err)
	}

	// the sum of opposite infinities would be NaN, any infinite operand fails
	if cur.IsInf() || incr.IsInf() {
		return Fail(ErrInvalidFloat)
	}
	res := cur.Add(cur, incr)
	// results beyond the float64 range could not be read back by later increments
	if f, _ := res.Float64(); math.IsInf(f, 0) {
		return Fail(ErrInvalidFloat)
	}

	out := value.FormatFloat(res)
	c.install(key, value.NewRaw(out), v != nil)
	c.notify(notify.ClassIncrByFloat, key)

	// replaying the increment is not exact, replicas receive the result
	c.rewrite([]byte("SET"), []byte(key), out, []byte("KEEPTTL"))
	return Bulk(out)
}

// --------------------------------------------------------------------------
// Length Operations
// --------------------------------------------------------------------------

// APPEND key value
func appendCommand(c *call) Reply {
	key, fragment := string(c.argv[1]), c.argv[2]
	v, err := c.lookupString(key)
	if err != nil {
		return Fail(err)
	}

	var n int
	if v == nil {
		if err := checkSize(int64(len(fragment))); err != nil {
			return Fail(err)
		}
		v = value.EncodeCandidate(fragment)
		c.install(key, v, false)
		n = v.Len()
	} else {
		if err := checkSize(int64(v.Len()) + int64(len(fragment))); err != nil {
			return Fail(err)
		}
		v = value.EnsureExclusive(c.db.keys, key, v)
		n = v.Append(fragment)
	}

	c.notify(notify.ClassAppend, key)
	c.propagate()
	return Int(int64(n))
}

// STRLEN key
func strlenCommand(c *call) Reply {
	v, err := c.lookupString(string(c.argv[1]))
	if err != nil {
		return Fail(err)
	}
	return Int(int64(value.LengthOf(v)))
}

// --------------------------------------------------------------------------
// Keyspace
// --------------------------------------------------------------------------

// DEL key [key ...]
func delCommand(c *call) Reply {
	var n int64
	for _, k := range c.argv[1:] {
		key := string(k)
		if c.db.keys.Delete(key, c.now) {
			n++
			c.notify(notify.ClassDel, key)
		}
	}
	if n > 0 {
		c.propagate()
	}
	return Int(n)
}

// EXISTS key [key ...]
func existsCommand(c *call) Reply {
	var n int64
	for _, k := range c.argv[1:] {
		if c.db.keys.Has(string(k), c.now) {
			n++
		}
	}
	return Int(n)
}

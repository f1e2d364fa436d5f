package command

import (
	"github.com/ValentinKolb/sKV/lib/group"
	"github.com/ValentinKolb/sKV/lib/notify"
)

// --------------------------------------------------------------------------
// Group Commands
// --------------------------------------------------------------------------

// GSET key value [key value ...]
func gsetCommand(c *call) Reply {
	if (len(c.argv)-1)%2 != 0 {
		return Fail(NewError(KindArity, "wrong number of arguments for GSET"))
	}

	n := (len(c.argv) - 1) / 2
	keys := make([]string, 0, n)
	values := make([][]byte, 0, n)
	for i := 1; i < len(c.argv); i += 2 {
		if err := checkSize(int64(len(c.argv[i+1]))); err != nil {
			return Fail(err)
		}
		keys = append(keys, string(c.argv[i]))
		values = append(values, c.argv[i+1])
	}

	res := c.db.groups.Write(keys, values)
	for _, k := range res.Written {
		c.notify(notify.ClassGroupSet, k)
	}
	if res.Created {
		log.Debugf("db %d: group %q created (%d members)", c.db.id, res.ID, len(keys))
	}
	c.propagate()
	return OK()
}

// GGET key [key ...]
func ggetCommand(c *call) Reply {
	keys := make([]string, len(c.argv)-1)
	for i, k := range c.argv[1:] {
		keys[i] = string(k)
	}

	values, _ := c.db.groups.Read(keys)
	items := make([]Reply, len(values))
	for i, v := range values {
		if v == nil {
			c.db.stats.misses.Inc(1)
			items[i] = Null()
			continue
		}
		c.db.stats.hits.Inc(1)
		items[i] = Bulk(v.Bytes())
	}

	// the read moved the group in the recency order
	c.propagate()
	return Array(items...)
}

// GDEL group-id
func gdelCommand(c *call) Reply {
	id := string(c.argv[1])
	if _, err := group.ResolveMembers(id); err != nil {
		return Fail(ErrInvalidGroup)
	}

	res := c.db.groups.Remove(id)
	for _, k := range res.Purged {
		c.notify(notify.ClassGroupDel, k)
	}
	if res.Removed {
		c.propagate()
	}
	return Bool(res.Removed)
}

// GRECENCY group-id
func grecencyCommand(c *call) Reply {
	at, ok := c.db.groups.Recency(string(c.argv[1]))
	if !ok {
		return Null()
	}
	return Int(int64(at))
}

// GOLDEST count
func goldestCommand(c *call) Reply {
	n, err := parseInt(c.argv[1])
	if err != nil {
		return Fail(err)
	}
	if n < 0 {
		return Fail(NewError(KindNotInteger, "value is out of range, must be positive"))
	}

	ids := c.db.groups.Oldest(int(n))
	items := make([]Reply, len(ids))
	for i, id := range ids {
		items[i] = Bulk([]byte(id))
	}
	return Array(items...)
}

// GREFCOUNT key
func grefcountCommand(c *call) Reply {
	return Int(c.db.groups.RefCount(string(c.argv[1])))
}

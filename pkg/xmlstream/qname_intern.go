package xmlstream

const qnameCacheMaxEntries = 4096

type qnameKey struct {
	namespace string
	local     string
}

// qnameCache hands out shared QName values so repeated element and attribute
// names do not allocate. The table is dropped once it exceeds maxEntries.
type qnameCache struct {
	table      map[qnameKey]QName
	last       QName
	maxEntries int
}

func newQNameCache() *qnameCache {
	return &qnameCache{
		table:      make(map[qnameKey]QName, 32),
		maxEntries: qnameCacheMaxEntries,
	}
}

func (c *qnameCache) setMaxEntries(maxEntries int) {
	c.maxEntries = max(maxEntries, 0)
}

func (c *qnameCache) internBytes(namespace string, local []byte) QName {
	if c.last.Namespace == namespace && c.last.Local == unsafeString(local) {
		return c.last
	}
	// the unsafe key is only used for lookup; stored keys are stable.
	if cached, ok := c.table[qnameKey{namespace: namespace, local: unsafeString(local)}]; ok {
		c.last = cached
		return cached
	}
	qname := QName{Namespace: namespace, Local: string(local)}
	if c.maxEntries > 0 && len(c.table) >= c.maxEntries {
		clear(c.table)
	}
	c.table[qnameKey{namespace: qname.Namespace, local: qname.Local}] = qname
	c.last = qname
	return qname
}

package common

import (
	"os/user"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

const identityCacheSize = 1024

// MT: The caches are thread-safe; the once guards their construction.
var (
	identityOnce sync.Once
	uidNames     *lru.TwoQueueCache
	gidNames     *lru.TwoQueueCache
	nameUids     *lru.TwoQueueCache

	// Replaceable for tests.
	lookupUid   = user.LookupId
	lookupGid   = user.LookupGroupId
	lookupLogin = user.Lookup
)

func identityCaches() {
	identityOnce.Do(func() {
		var err error
		if uidNames, err = lru.New2Q(identityCacheSize); err != nil {
			panic(err)
		}
		if gidNames, err = lru.New2Q(identityCacheSize); err != nil {
			panic(err)
		}
		if nameUids, err = lru.New2Q(identityCacheSize); err != nil {
			panic(err)
		}
	})
}

// UidToName returns the login name for uid, or the decimal uid if it is unknown.  Failed lookups
// are cached too.
func UidToName(uid uint32) string {
	identityCaches()
	if probe, ok := uidNames.Get(uid); ok {
		return probe.(string)
	}
	name := strconv.FormatUint(uint64(uid), 10)
	if u, err := lookupUid(name); err == nil && u.Username != "" {
		name = u.Username
	}
	uidNames.Add(uid, name)
	return name
}

// GidToName returns the group name for gid, or the decimal gid if it is unknown.
func GidToName(gid uint32) string {
	identityCaches()
	if probe, ok := gidNames.Get(gid); ok {
		return probe.(string)
	}
	name := strconv.FormatUint(uint64(gid), 10)
	if g, err := lookupGid(name); err == nil && g.Name != "" {
		name = g.Name
	}
	gidNames.Add(gid, name)
	return name
}

// NameToUid resolves a login name.  An all-digits string is taken to be a uid already.
func NameToUid(name string) (uint32, error) {
	if n, err := strconv.ParseUint(name, 10, 32); err == nil {
		return uint32(n), nil
	}
	identityCaches()
	if probe, ok := nameUids.Get(name); ok {
		return probe.(uint32), nil
	}
	u, err := lookupLogin(name)
	if err != nil {
		return 0, NewUnknownIdentity("Invalid user: %s", name)
	}
	n, err := strconv.ParseUint(u.Uid, 10, 32)
	if err != nil {
		return 0, NewUnknownIdentity("Invalid user: %s", name)
	}
	nameUids.Add(name, uint32(n))
	return uint32(n), nil
}

// CurrentUid is the uid used by --me.
func CurrentUid() (uint32, error) {
	u, err := user.Current()
	if err != nil {
		return 0, NewUnknownIdentity("Unable to identify the current user: %v", err)
	}
	n, err := strconv.ParseUint(u.Uid, 10, 32)
	if err != nil {
		return 0, NewUnknownIdentity("Unable to identify the current user: %v", err)
	}
	return uint32(n), nil
}

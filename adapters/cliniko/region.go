package cliniko

import "regexp"

// Cliniko API keys end with the shard the account lives in, e.g. "...-au2".
var shardSuffix = regexp.MustCompile(`^[a-z]{2}\d{1,2}$`)

var knownShards = map[string]struct{}{
	"au1": {}, "au2": {}, "au3": {}, "au4": {}, "au5": {},
	"ca1": {},
	"uk1": {}, "uk2": {}, "uk3": {},
	"eu1": {},
}

const defaultShard = "au1"

// ShardFromAPIKey extracts the regional shard encoded in the trailing
// characters of an API key. Unknown or missing shards fall back to au1.
func ShardFromAPIKey(apiKey string) string {
	for _, n := range []int{3, 4} {
		if len(apiKey) < n {
			continue
		}
		suffix := apiKey[len(apiKey)-n:]
		if !shardSuffix.MatchString(suffix) {
			continue
		}
		if _, ok := knownShards[suffix]; ok {
			return suffix
		}
	}
	return defaultShard
}

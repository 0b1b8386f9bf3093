package domain

// Topics is the closed set of form categories used by the California Courts
// self-help catalog. Topic filters against any other value are ignored.
var Topics = []string{
	"adoption",
	"appeals",
	"child custody and visitation",
	"child support",
	"civil",
	"civil harassment",
	"cleaning criminal record",
	"conservatorship",
	"discovery and subpoenas",
	"divorce",
	"domestic violence",
	"elder abuse",
	"enforcement of judgment",
	"eviction",
	"fee waivers",
	"gender change",
	"guardianship",
	"juvenile",
	"language access",
	"name change",
	"parentage",
	"probate",
	"proof of service",
	"remote appearance",
	"small claims",
	"traffic",
}

var topicSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Topics))
	for _, t := range Topics {
		m[t] = struct{}{}
	}
	return m
}()

// KnownTopic reports whether t is one of the catalog topics.
func KnownTopic(t string) bool {
	_, ok := topicSet[t]
	return ok
}

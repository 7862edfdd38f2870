package authz

import "github.com/jschmidtnj/ewaab-sub000/pkg/principal"

// PostSubtype is the category of a post, the unit the capability tables gate
type PostSubtype string

const (
	PostCommunity  PostSubtype = "community"
	PostMentorNews PostSubtype = "mentorNews"
	PostJobs       PostSubtype = "jobs"
)

// AllPostSubtypes lists every post category, for table-completeness checks
var AllPostSubtypes = []PostSubtype{PostCommunity, PostMentorNews, PostJobs}

// The authoritative role capability tables. Absent entries mean false, so
// every (role, subtype) pair is defined.
var (
	viewTable = map[principal.Role]map[PostSubtype]bool{
		principal.RoleAdmin: {
			PostCommunity:  true,
			PostMentorNews: true,
			PostJobs:       true,
		},
		principal.RoleUser: {
			PostCommunity:  true,
			PostMentorNews: true,
			PostJobs:       true,
		},
		principal.RoleMentor: {
			PostCommunity:  true,
			PostMentorNews: true,
		},
		principal.RoleThirdParty: {
			PostMentorNews: true,
		},
		principal.RoleVisitor: {
			PostJobs: true,
		},
	}

	writeTable = map[principal.Role]map[PostSubtype]bool{
		principal.RoleAdmin: {
			PostCommunity:  true,
			PostMentorNews: true,
			PostJobs:       true,
		},
		principal.RoleUser: {
			PostCommunity: true,
		},
		principal.RoleMentor: {
			PostCommunity:  true,
			PostMentorNews: true,
		},
		principal.RoleVisitor: {
			PostJobs: true,
		},
	}
)

// CanViewPost reports whether the role may view posts of the given category
func CanViewPost(role principal.Role, subtype PostSubtype) bool {
	return viewTable[role][subtype]
}

// CanWritePost reports whether the role may create posts of the given category
func CanWritePost(role principal.Role, subtype PostSubtype) bool {
	return writeTable[role][subtype]
}

package server

import "regexp"

var fileIDRegex = regexp.MustCompile(`^fl-[0-9a-z]{10}$`)

func validateFileID(id string) bool {
	return fileIDRegex.MatchString(id)
}

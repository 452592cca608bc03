package repoindex

import "github.com/divvun/pahkat-go/pahkaterr"

func errNetwork(cause error) error {
	return pahkaterr.New(pahkaterr.RepoNetwork, cause)
}

func errParse(cause error) error {
	return pahkaterr.New(pahkaterr.RepoParse, cause)
}

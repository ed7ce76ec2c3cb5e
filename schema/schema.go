// Package schema has the models, constants and sentinel errors shared by all parts of autoindex.
package schema

package db

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/gocql/gocql"
)

type QueryOptions struct {
	Consistency       gocql.Consistency
	SerialConsistency gocql.SerialConsistency
}

func NewQueryOptions() *QueryOptions {
	return &QueryOptions{
		Consistency:       gocql.LocalOne,
		SerialConsistency: gocql.LocalSerial,
	}
}

func (q *QueryOptions) WithConsistency(consistency gocql.Consistency) *QueryOptions {
	q.Consistency = consistency
	return q
}

type Session interface {
	// ExecuteIter executes a statement and returns the rows of the result set
	ExecuteIter(query string, options *QueryOptions, values ...interface{}) (ResultSet, error)
}

type ResultSet interface {
	PageState() string
	Values() []map[string]interface{}
}

type goCqlResultIterator struct {
	pageState []byte
	values    []map[string]interface{}
}

func (r *goCqlResultIterator) PageState() string {
	return hex.EncodeToString(r.pageState)
}

func (r *goCqlResultIterator) Values() []map[string]interface{} {
	return r.values
}

func newResultIterator(iter *gocql.Iter) (*goCqlResultIterator, error) {
	columns := iter.Columns()
	scanner := iter.Scanner()

	items := make([]map[string]interface{}, 0)
	for scanner.Next() {
		row, err := mapScan(scanner, columns)
		if err != nil {
			return nil, err
		}
		items = append(items, row)
	}

	if err := iter.Close(); err != nil {
		return nil, err
	}

	return &goCqlResultIterator{
		pageState: iter.PageState(),
		values:    items,
	}, nil
}

type GoCqlSession struct {
	ref *gocql.Session
}

// NewCassandraSession connects to the cluster and uses keyspace for unqualified
// statements. Credentials are only sent when username is set.
func NewCassandraSession(hosts []string, keyspace, username, password string) (*GoCqlSession, error) {
	if len(hosts) == 0 {
		return nil, errors.New("at least one cassandra host is required")
	}
	cluster := gocql.NewCluster(hosts...)
	cluster.Keyspace = keyspace
	cluster.PoolConfig.HostSelectionPolicy = NewDefaultHostSelectionPolicy()
	if username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: username,
			Password: password,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("unable to connect to cassandra: %w", err)
	}
	return &GoCqlSession{ref: session}, nil
}

func (session *GoCqlSession) ExecuteIter(query string, options *QueryOptions, values ...interface{}) (ResultSet, error) {
	q := session.ref.Query(query, values...)

	if options != nil {
		q.Consistency(options.Consistency)

		if options.SerialConsistency != gocql.Serial && options.SerialConsistency != gocql.LocalSerial {
			return nil, errors.New("invalid serial consistency")
		}
		q.SerialConsistency(options.SerialConsistency)
	}
	return newResultIterator(q.Iter())
}

func (session *GoCqlSession) Close() {
	session.ref.Close()
}

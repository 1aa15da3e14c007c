package db

import (
	"sync/atomic"

	"github.com/gocql/gocql"
)

// NewDefaultHostSelectionPolicy routes each query to a replica of the data
// center of the first host discovered.
func NewDefaultHostSelectionPolicy() gocql.HostSelectionPolicy {
	return gocql.TokenAwareHostPolicy(newLocalDCPolicy(), gocql.ShuffleReplicas())
}

type policyHolder struct {
	gocql.HostSelectionPolicy
}

// localDCPolicy starts as round robin and switches to DC-aware round robin
// pinned to the data center of the first host added.
type localDCPolicy struct {
	current  atomic.Pointer[policyHolder]
	dcPinned atomic.Bool
}

func newLocalDCPolicy() *localDCPolicy {
	p := &localDCPolicy{}
	p.current.Store(&policyHolder{gocql.RoundRobinHostPolicy()})
	return p
}

func (p *localDCPolicy) child() gocql.HostSelectionPolicy {
	return p.current.Load().HostSelectionPolicy
}

func (p *localDCPolicy) AddHost(host *gocql.HostInfo) {
	if p.dcPinned.CompareAndSwap(false, true) {
		pinned := gocql.DCAwareRoundRobinPolicy(host.DataCenter())
		p.current.Store(&policyHolder{pinned})
	}
	p.child().AddHost(host)
}

func (p *localDCPolicy) RemoveHost(host *gocql.HostInfo) { p.child().RemoveHost(host) }

func (p *localDCPolicy) HostUp(host *gocql.HostInfo) { p.child().HostUp(host) }

func (p *localDCPolicy) HostDown(host *gocql.HostInfo) { p.child().HostDown(host) }

func (p *localDCPolicy) SetPartitioner(partitioner string) { p.child().SetPartitioner(partitioner) }

func (p *localDCPolicy) KeyspaceChanged(e gocql.KeyspaceUpdateEvent) { p.child().KeyspaceChanged(e) }

// Init is not called by the token aware parent on its fallback.
func (p *localDCPolicy) Init(*gocql.Session) {}

func (p *localDCPolicy) IsLocal(host *gocql.HostInfo) bool { return p.child().IsLocal(host) }

func (p *localDCPolicy) Pick(query gocql.ExecutableQuery) gocql.NextHost {
	return p.child().Pick(query)
}

package schema

const (
	Users     Kind = "users"
	Nodes     Kind = "nodes"
	Computers Kind = "computers"
	Groups    Kind = "groups"
	Comments  Kind = "comments"
	Logs      Kind = "logs"
)

// pk is the identity field of every AiiDA entity.
const pk = "pk"

func pkField() Field {
	return Field{Name: pk, Column: "id", Type: Int, Description: "Unique id (pk)"}
}

func uuidField() Field {
	return Field{Name: "uuid", Column: "uuid", Type: UUID, Description: "Unique uuid"}
}

// NewAiiDARegistry returns the registry of the AiiDA database tables.
func NewAiiDARegistry() (*Registry, error) {
	return NewRegistry(
		aiidaUser(),
		aiidaNode(),
		aiidaComputer(),
		aiidaGroup(),
		aiidaComment(),
		aiidaLog(),
	)
}

// MustAiiDARegistry is like NewAiiDARegistry but panics on error.
func MustAiiDARegistry() *Registry {
	r, err := NewAiiDARegistry()
	if err != nil {
		panic(err)
	}
	return r
}

func aiidaUser() *Entity {
	return &Entity{
		Kind:          Users,
		Singular:      "user",
		Table:         "db_dbuser",
		IdentityField: pk,
		Fields: []Field{
			pkField(),
			{Name: "email", Column: "email", Type: String, Description: "Email address of the user"},
			{Name: "first_name", Column: "first_name", Type: String, Description: "First name of the user"},
			{Name: "last_name", Column: "last_name", Type: String, Description: "Last name of the user"},
			{Name: "institution", Column: "institution", Type: String, Description: "Host institution or workplace of the user"},
		},
		Relations: []Relation{
			{Name: "nodes", Target: Nodes, Join: JoinTargetKey, Column: "user_id"},
			{Name: "groups", Target: Groups, Join: JoinTargetKey, Column: "user_id"},
			{Name: "comments", Target: Comments, Join: JoinTargetKey, Column: "user_id"},
		},
	}
}

func aiidaNode() *Entity {
	return &Entity{
		Kind:          Nodes,
		Singular:      "node",
		Table:         "db_dbnode",
		IdentityField: pk,
		Fields: []Field{
			pkField(),
			uuidField(),
			{Name: "node_type", Column: "node_type", Type: String, Description: "Node type"},
			{Name: "process_type", Column: "process_type", Type: String, Description: "Process type"},
			{Name: "label", Column: "label", Type: String, Description: "Label of node"},
			{Name: "description", Column: "description", Type: String, Description: "Description of node"},
			{Name: "ctime", Column: "ctime", Type: Timestamp, Description: "Creation time"},
			{Name: "mtime", Column: "mtime", Type: Timestamp, Description: "Last modification time"},
			{Name: "user", Column: "user_id", Type: Int, Description: "Created by user id (pk)"},
			{Name: "computer", Column: "dbcomputer_id", Type: Int, Description: "Associated computer id (pk)"},
			{Name: "attributes", Column: "attributes", Type: JSON, MayBeLarge: true, Description: "Variable attributes of the node"},
			{Name: "extras", Column: "extras", Type: JSON, Description: "Variable extras (unsealed) of the node"},
			{Name: "repository_metadata", Column: "repository_metadata", Type: JSON, MayBeLarge: true, Description: "Metadata of the node file repository"},
		},
		Relations: []Relation{
			{Name: "user", Target: Users, Join: JoinSourceKey, Column: "user_id"},
			{Name: "computer", Target: Computers, Join: JoinSourceKey, Column: "dbcomputer_id"},
			{Name: "comments", Target: Comments, Join: JoinTargetKey, Column: "dbnode_id"},
			{Name: "logs", Target: Logs, Join: JoinTargetKey, Column: "dbnode_id"},
			{
				Name:       "groups",
				Target:     Groups,
				Join:       JoinLinkTable,
				LinkTable:  "db_dbgroup_dbnodes",
				LinkSource: "dbnode_id",
				LinkTarget: "dbgroup_id",
			},
		},
	}
}

func aiidaComputer() *Entity {
	return &Entity{
		Kind:          Computers,
		Singular:      "computer",
		Table:         "db_dbcomputer",
		IdentityField: pk,
		Fields: []Field{
			pkField(),
			uuidField(),
			{Name: "label", Column: "label", Type: String, Description: "Computer label"},
			{Name: "hostname", Column: "hostname", Type: String, Description: "Computer hostname"},
			{Name: "description", Column: "description", Type: String, Description: "Computer description"},
			{Name: "scheduler_type", Column: "scheduler_type", Type: String, Description: "Scheduler type"},
			{Name: "transport_type", Column: "transport_type", Type: String, Description: "Transport type"},
			{Name: "metadata", Column: "metadata", Type: JSON, MayBeLarge: true, Description: "Metadata of the computer"},
		},
		Relations: []Relation{
			{Name: "nodes", Target: Nodes, Join: JoinTargetKey, Column: "dbcomputer_id"},
		},
	}
}

func aiidaGroup() *Entity {
	return &Entity{
		Kind:          Groups,
		Singular:      "group",
		Table:         "db_dbgroup",
		IdentityField: pk,
		Fields: []Field{
			pkField(),
			uuidField(),
			{Name: "label", Column: "label", Type: String, Description: "Label of group"},
			{Name: "type_string", Column: "type_string", Type: String, Description: "Type of the group"},
			{Name: "time", Column: "time", Type: Timestamp, Description: "Created time"},
			{Name: "description", Column: "description", Type: String, Description: "Description of group"},
			{Name: "extras", Column: "extras", Type: JSON, Description: "Extra data about the group"},
			{Name: "user", Column: "user_id", Type: Int, Description: "Created by user id (pk)"},
		},
		Relations: []Relation{
			{Name: "user", Target: Users, Join: JoinSourceKey, Column: "user_id"},
			{
				Name:       "nodes",
				Target:     Nodes,
				Join:       JoinLinkTable,
				LinkTable:  "db_dbgroup_dbnodes",
				LinkSource: "dbgroup_id",
				LinkTarget: "dbnode_id",
			},
		},
	}
}

func aiidaComment() *Entity {
	return &Entity{
		Kind:          Comments,
		Singular:      "comment",
		Table:         "db_dbcomment",
		IdentityField: pk,
		Fields: []Field{
			pkField(),
			uuidField(),
			{Name: "ctime", Column: "ctime", Type: Timestamp, Description: "Creation time"},
			{Name: "mtime", Column: "mtime", Type: Timestamp, Description: "Last modification time"},
			{Name: "content", Column: "content", Type: String, Description: "Content of the comment"},
			{Name: "user", Column: "user_id", Type: Int, Description: "Created by user id (pk)"},
			{Name: "node", Column: "dbnode_id", Type: Int, Description: "Associated node id (pk)"},
		},
		Relations: []Relation{
			{Name: "user", Target: Users, Join: JoinSourceKey, Column: "user_id"},
			{Name: "node", Target: Nodes, Join: JoinSourceKey, Column: "dbnode_id"},
		},
	}
}

func aiidaLog() *Entity {
	return &Entity{
		Kind:          Logs,
		Singular:      "log",
		Table:         "db_dblog",
		IdentityField: pk,
		Fields: []Field{
			pkField(),
			uuidField(),
			{Name: "time", Column: "time", Type: Timestamp, Description: "Creation time"},
			{Name: "loggername", Column: "loggername", Type: String, Description: "The loggers name"},
			{Name: "levelname", Column: "levelname", Type: String, Description: "The log level"},
			{Name: "message", Column: "message", Type: String, Description: "The log message"},
			{Name: "metadata", Column: "metadata", Type: JSON, Description: "Metadata associated with the log"},
			{Name: "node", Column: "dbnode_id", Type: Int, Description: "Associated node id (pk)"},
		},
		Relations: []Relation{
			{Name: "node", Target: Nodes, Join: JoinSourceKey, Column: "dbnode_id"},
		},
	}
}

package testutil

// The subset of the AiiDA database schema read by the data APIs.
const aiidaSchema = `
DROP TABLE IF EXISTS db_dbgroup_dbnodes, db_dblog, db_dbcomment, db_dbgroup, db_dbnode, db_dbcomputer, db_dbuser;

CREATE TABLE db_dbuser (
    id serial PRIMARY KEY,
    email varchar(254) NOT NULL UNIQUE,
    first_name varchar(254) NOT NULL,
    last_name varchar(254) NOT NULL,
    institution varchar(254) NOT NULL
);

CREATE TABLE db_dbcomputer (
    id serial PRIMARY KEY,
    uuid uuid NOT NULL UNIQUE,
    label varchar(255) NOT NULL UNIQUE,
    hostname varchar(255) NOT NULL,
    description text NOT NULL,
    scheduler_type varchar(255) NOT NULL,
    transport_type varchar(255) NOT NULL,
    metadata jsonb NOT NULL
);

CREATE TABLE db_dbnode (
    id serial PRIMARY KEY,
    uuid uuid NOT NULL UNIQUE,
    node_type varchar(255) NOT NULL,
    process_type varchar(255),
    label varchar(255) NOT NULL,
    description text NOT NULL,
    ctime timestamptz NOT NULL,
    mtime timestamptz NOT NULL,
    user_id integer NOT NULL REFERENCES db_dbuser (id),
    dbcomputer_id integer REFERENCES db_dbcomputer (id),
    attributes jsonb,
    extras jsonb,
    repository_metadata jsonb
);

CREATE TABLE db_dbgroup (
    id serial PRIMARY KEY,
    uuid uuid NOT NULL UNIQUE,
    label varchar(255) NOT NULL,
    type_string varchar(255) NOT NULL,
    time timestamptz NOT NULL,
    description text NOT NULL,
    extras jsonb NOT NULL,
    user_id integer NOT NULL REFERENCES db_dbuser (id)
);

CREATE TABLE db_dbgroup_dbnodes (
    id serial PRIMARY KEY,
    dbgroup_id integer NOT NULL REFERENCES db_dbgroup (id),
    dbnode_id integer NOT NULL REFERENCES db_dbnode (id)
);

CREATE TABLE db_dbcomment (
    id serial PRIMARY KEY,
    uuid uuid NOT NULL UNIQUE,
    ctime timestamptz NOT NULL,
    mtime timestamptz NOT NULL,
    content text NOT NULL,
    user_id integer NOT NULL REFERENCES db_dbuser (id),
    dbnode_id integer NOT NULL REFERENCES db_dbnode (id)
);

CREATE TABLE db_dblog (
    id serial PRIMARY KEY,
    uuid uuid NOT NULL UNIQUE,
    time timestamptz NOT NULL,
    loggername varchar(255) NOT NULL,
    levelname varchar(50) NOT NULL,
    message text NOT NULL,
    metadata jsonb NOT NULL,
    dbnode_id integer NOT NULL REFERENCES db_dbnode (id)
);
`

// Two users, one computer, four nodes, one group holding two of the nodes, two
// comments and one log.
const aiidaFixture = `
INSERT INTO db_dbuser (id, email, first_name, last_name, institution) VALUES
    (1, 'aiida@localhost', 'AiiDA', 'Admin', 'EPFL'),
    (2, 'jane@example.com', 'Jane', 'Doe', 'PSI');

INSERT INTO db_dbcomputer (id, uuid, label, hostname, description, scheduler_type, transport_type, metadata) VALUES
    (1, '0bb6a4e8-7a1f-4c1e-9b8e-5b57a1d3c0a1', 'localhost', 'localhost', 'this computer', 'core.direct', 'core.local',
     '{"workdir": "/tmp/aiida"}');

INSERT INTO db_dbnode (id, uuid, node_type, process_type, label, description, ctime, mtime, user_id, dbcomputer_id, attributes, extras, repository_metadata) VALUES
    (1, 'f4d1c5c6-1b0a-4c44-8f1a-2d3f1a6f6e01', 'data.core.int.Int.', NULL, 'x', '', '2021-01-01 10:00:00+00', '2021-01-01 10:00:00+00', 1, NULL,
     '{"value": 1}', '{"tags": ["a", "b"]}', '{}'),
    (2, 'f4d1c5c6-1b0a-4c44-8f1a-2d3f1a6f6e02', 'data.core.int.Int.', NULL, 'y', '', '2021-01-02 10:00:00+00', '2021-01-02 10:00:00+00', 1, NULL,
     '{"value": 2}', '{"tags": ["b"]}', '{}'),
    (3, 'f4d1c5c6-1b0a-4c44-8f1a-2d3f1a6f6e03', 'data.core.float.Float.', NULL, 'x', '', '2021-02-01 10:00:00+00', '2021-02-01 10:00:00+00', 2, NULL,
     '{"value": 2.5}', '{}', '{}'),
    (4, 'f4d1c5c6-1b0a-4c44-8f1a-2d3f1a6f6e04', 'process.calculation.calcjob.CalcJobNode.', 'aiida.calculations:core.arithmetic.add', 'add', '', '2021-03-01 10:00:00+00', '2021-03-01 11:00:00+00', 2, 1,
     '{"exit_status": 0, "process_state": "finished"}', '{}', '{}');

INSERT INTO db_dbgroup (id, uuid, label, type_string, time, description, extras, user_id) VALUES
    (1, '5e1c0c2a-8d2d-4f1e-9e43-0a4d0c8f7a11', 'integers', 'core', '2021-01-03 10:00:00+00', '', '{}', 1);

INSERT INTO db_dbgroup_dbnodes (dbgroup_id, dbnode_id) VALUES (1, 1), (1, 2);

INSERT INTO db_dbcomment (id, uuid, ctime, mtime, content, user_id, dbnode_id) VALUES
    (1, '9a0f3c4e-2b5d-4c1a-8e7f-6d5c4b3a2911', '2021-01-01 12:00:00+00', '2021-01-01 12:00:00+00', 'first', 1, 1),
    (2, '9a0f3c4e-2b5d-4c1a-8e7f-6d5c4b3a2912', '2021-01-02 12:00:00+00', '2021-01-02 12:00:00+00', 'second', 2, 1);

INSERT INTO db_dblog (id, uuid, time, loggername, levelname, message, metadata, dbnode_id) VALUES
    (1, '3c2b1a09-8f7e-4d6c-9b5a-4f3e2d1c0b11', '2021-03-01 10:30:00+00', 'aiida.orm.nodes.process', 'REPORT', 'submitted', '{}', 4);
`

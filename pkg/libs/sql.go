package libs

import (
	"database/sql"

	_ "modernc.org/sqlite"

	"github.com/lumenlang/lumen/pkg/lumen"
)

// dbMetaKey names the shared database-handle metatable in the registry.
const dbMetaKey = "lumen.sql.db"

// openSQL installs the sql table. sql.open returns a database handle as a
// userdata whose methods live on a shared metatable; handles are closed
// explicitly or by the __gc finalizer at instance shutdown.
func openSQL(l *lumen.State) {
	register(l, "sql", map[string]lumen.Function{
		"open": sqlOpen,
	})
	ensureDBMetatable(l)
}

type dbHandle struct {
	db *sql.DB
}

func ensureDBMetatable(l *lumen.State) {
	l.GetField(lumen.RegistryIndex, dbMetaKey)
	if !l.IsNil(-1) {
		l.Pop(1)
		return
	}
	l.Pop(1)

	l.NewTable()

	l.NewTable()
	methods := map[string]lumen.Function{
		"exec":  dbExec,
		"query": dbQuery,
		"close": dbClose,
	}
	for name, fn := range methods {
		l.PushGoFunction(fn)
		l.SetField(-2, name)
	}
	l.SetField(-2, "__index")

	l.PushGoFunction(dbClose)
	l.SetField(-2, "__gc")

	l.SetField(lumen.RegistryIndex, dbMetaKey)
}

func sqlOpen(l *lumen.State) int {
	path := l.CheckString(1)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		l.PushNil()
		l.PushString("cannot open database: " + err.Error())
		return 2
	}
	l.NewUserData(&dbHandle{db: db})
	l.GetField(lumen.RegistryIndex, dbMetaKey)
	l.SetMetatable(-2)
	return 1
}

func checkDB(l *lumen.State) *dbHandle {
	h, ok := l.CheckUserData(1).(*dbHandle)
	if !ok {
		l.ArgError(1, "database handle expected")
	}
	if h.db == nil {
		l.ArgError(1, "database handle is closed")
	}
	return h
}

// bindArgs collects stack slots from first upward as driver arguments.
func bindArgs(l *lumen.State, first int) []any {
	args := make([]any, 0, l.Top()-first+1)
	for i := first; i <= l.Top(); i++ {
		v, err := toGoValue(l, i)
		if err != nil {
			l.ArgError(i, err.Error())
		}
		args = append(args, v)
	}
	return args
}

func dbExec(l *lumen.State) int {
	h := checkDB(l)
	stmt := l.CheckString(2)
	res, err := h.db.Exec(stmt, bindArgs(l, 3)...)
	if err != nil {
		l.PushNil()
		l.PushString(err.Error())
		return 2
	}
	affected, _ := res.RowsAffected()
	l.PushInteger(affected)
	return 1
}

func dbQuery(l *lumen.State) int {
	h := checkDB(l)
	stmt := l.CheckString(2)
	rows, err := h.db.Query(stmt, bindArgs(l, 3)...)
	if err != nil {
		l.PushNil()
		l.PushString(err.Error())
		return 2
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		l.PushNil()
		l.PushString(err.Error())
		return 2
	}

	l.NewTable()
	rowIndex := 0
	values := make([]any, len(cols))
	scan := make([]any, len(cols))
	for i := range values {
		scan[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(scan...); err != nil {
			l.Pop(1)
			l.PushNil()
			l.PushString(err.Error())
			return 2
		}
		l.CreateTable(0, len(cols))
		for i, col := range cols {
			if err := pushGoValue(l, values[i]); err != nil {
				l.PushNil()
			}
			l.SetField(-2, col)
		}
		rowIndex++
		l.RawSetInt(-2, rowIndex)
	}
	if err := rows.Err(); err != nil {
		l.Pop(1)
		l.PushNil()
		l.PushString(err.Error())
		return 2
	}
	return 1
}

func dbClose(l *lumen.State) int {
	h, ok := l.CheckUserData(1).(*dbHandle)
	if !ok {
		l.ArgError(1, "database handle expected")
	}
	if h.db != nil {
		err := h.db.Close()
		h.db = nil
		if err != nil {
			l.PushNil()
			l.PushString(err.Error())
			return 2
		}
	}
	l.PushBoolean(true)
	return 1
}

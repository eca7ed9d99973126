package libs

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lumenlang/lumen/pkg/lumen"
)

// openYAML installs the yaml table: decode, encode, read, write.
// Failures follow the nil-plus-message convention rather than raising.
func openYAML(l *lumen.State) {
	register(l, "yaml", map[string]lumen.Function{
		"decode": yamlDecode,
		"encode": yamlEncode,
		"read":   yamlRead,
		"write":  yamlWrite,
	})
}

func pushYAML(l *lumen.State, data []byte) int {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		l.PushNil()
		l.PushString("yaml parse error: " + err.Error())
		return 2
	}
	if err := pushGoValue(l, v); err != nil {
		l.PushNil()
		l.PushString(err.Error())
		return 2
	}
	return 1
}

func yamlDecode(l *lumen.State) int {
	return pushYAML(l, []byte(l.CheckString(1)))
}

func yamlEncode(l *lumen.State) int {
	l.CheckAny(1)
	v, err := toGoValue(l, 1)
	if err != nil {
		l.PushNil()
		l.PushString(err.Error())
		return 2
	}
	out, err := yaml.Marshal(v)
	if err != nil {
		l.PushNil()
		l.PushString("yaml encoding error: " + err.Error())
		return 2
	}
	l.PushString(string(out))
	return 1
}

func yamlRead(l *lumen.State) int {
	path := l.CheckString(1)
	data, err := os.ReadFile(path)
	if err != nil {
		l.PushNil()
		l.PushString("cannot read file: " + err.Error())
		return 2
	}
	return pushYAML(l, data)
}

func yamlWrite(l *lumen.State) int {
	path := l.CheckString(1)
	l.CheckAny(2)
	v, err := toGoValue(l, 2)
	if err != nil {
		l.PushNil()
		l.PushString(err.Error())
		return 2
	}
	out, err := yaml.Marshal(v)
	if err != nil {
		l.PushNil()
		l.PushString("yaml encoding error: " + err.Error())
		return 2
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		l.PushNil()
		l.PushString("cannot write file: " + err.Error())
		return 2
	}
	l.PushBoolean(true)
	return 1
}

package libs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/lumenlang/lumen/pkg/lumen"
)

// openRPC installs the rpc table: a dynamic gRPC client working from
// .proto files parsed at runtime, with no generated code. Message values
// cross the boundary as tables.
func openRPC(l *lumen.State) {
	register(l, "rpc", map[string]lumen.Function{
		"connect": rpcConnect,
		"close":   rpcClose,
		"load":    rpcLoadProto,
		"invoke":  rpcInvoke,
		"encode":  protoEncode,
		"decode":  protoDecode,
	})
	ensureConnMetatable(l)
}

const connMetaKey = "lumen.rpc.conn"

type rpcConn struct {
	conn *grpc.ClientConn
}

// protoRegistry holds file descriptors loaded by rpc.load, shared across
// VM instances.
var (
	protoRegistryMu sync.Mutex
	protoRegistry   = map[string]*desc.FileDescriptor{}
)

func ensureConnMetatable(l *lumen.State) {
	l.GetField(lumen.RegistryIndex, connMetaKey)
	if !l.IsNil(-1) {
		l.Pop(1)
		return
	}
	l.Pop(1)

	l.NewTable()
	l.NewTable()
	l.PushGoFunction(rpcClose)
	l.SetField(-2, "close")
	l.PushGoFunction(rpcInvoke)
	l.SetField(-2, "invoke")
	l.SetField(-2, "__index")
	l.PushGoFunction(rpcClose)
	l.SetField(-2, "__gc")
	l.SetField(lumen.RegistryIndex, connMetaKey)
}

func rpcConnect(l *lumen.State) int {
	target := l.CheckString(1)
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		l.PushNil()
		l.PushString("cannot connect: " + err.Error())
		return 2
	}
	l.NewUserData(&rpcConn{conn: conn})
	l.GetField(lumen.RegistryIndex, connMetaKey)
	l.SetMetatable(-2)
	return 1
}

func checkConn(l *lumen.State) *rpcConn {
	c, ok := l.CheckUserData(1).(*rpcConn)
	if !ok {
		l.ArgError(1, "rpc connection expected")
	}
	return c
}

func rpcClose(l *lumen.State) int {
	c := checkConn(l)
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		if err != nil {
			l.PushNil()
			l.PushString(err.Error())
			return 2
		}
	}
	l.PushBoolean(true)
	return 1
}

func rpcLoadProto(l *lumen.State) int {
	path := l.CheckString(1)
	importPath := l.OptString(2, ".")

	parser := protoparse.Parser{ImportPaths: []string{importPath}}
	fds, err := parser.ParseFiles(path)
	if err != nil {
		l.PushNil()
		l.PushString("failed to parse proto: " + err.Error())
		return 2
	}

	protoRegistryMu.Lock()
	for _, fd := range fds {
		protoRegistry[fd.GetName()] = fd
	}
	protoRegistryMu.Unlock()

	l.PushBoolean(true)
	return 1
}

func findMethod(path string) (*desc.MethodDescriptor, error) {
	slash := strings.LastIndex(path, "/")
	if slash < 0 {
		return nil, fmt.Errorf("method path %q must be Service/Method", path)
	}
	serviceName, methodName := path[:slash], path[slash+1:]

	protoRegistryMu.Lock()
	defer protoRegistryMu.Unlock()
	for _, fd := range protoRegistry {
		if svc := fd.FindService(serviceName); svc != nil {
			if m := svc.FindMethodByName(methodName); m != nil {
				return m, nil
			}
			return nil, fmt.Errorf("method %q not found in service %q", methodName, serviceName)
		}
	}
	return nil, fmt.Errorf("service %q not found; load its proto file first", serviceName)
}

func findMessage(name string) (*desc.MessageDescriptor, error) {
	protoRegistryMu.Lock()
	defer protoRegistryMu.Unlock()
	for _, fd := range protoRegistry {
		if md := fd.FindMessage(name); md != nil {
			return md, nil
		}
	}
	return nil, fmt.Errorf("message %q not found; load its proto file first", name)
}

// tableToMessage fills msg from the table at idx through its JSON form.
func tableToMessage(l *lumen.State, idx int, msg *dynamic.Message) error {
	v, err := toGoValue(l, idx)
	if err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return msg.UnmarshalJSON(data)
}

// pushMessage pushes msg as a table through its JSON form.
func pushMessage(l *lumen.State, msg *dynamic.Message) error {
	data, err := msg.MarshalJSON()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v == nil {
		v = map[string]any{}
	}
	return pushGoValue(l, v)
}

func rpcInvoke(l *lumen.State) int {
	c := checkConn(l)
	if c.conn == nil {
		l.ArgError(1, "rpc connection is closed")
	}
	methodPath := l.CheckString(2)
	l.CheckTable(3)

	md, err := findMethod(methodPath)
	if err != nil {
		l.PushNil()
		l.PushString(err.Error())
		return 2
	}

	reqMsg := dynamic.NewMessage(md.GetInputType())
	if err := tableToMessage(l, 3, reqMsg); err != nil {
		l.PushNil()
		l.PushString("failed to build request: " + err.Error())
		return 2
	}
	respMsg := dynamic.NewMessage(md.GetOutputType())

	fullPath := "/" + md.GetService().GetFullyQualifiedName() + "/" + md.GetName()
	if err := c.conn.Invoke(context.Background(), fullPath, reqMsg, respMsg); err != nil {
		l.PushNil()
		l.PushString("rpc failed: " + err.Error())
		return 2
	}

	if err := pushMessage(l, respMsg); err != nil {
		l.PushNil()
		l.PushString("failed to decode response: " + err.Error())
		return 2
	}
	return 1
}

func protoEncode(l *lumen.State) int {
	name := l.CheckString(1)
	l.CheckTable(2)

	md, err := findMessage(name)
	if err != nil {
		l.PushNil()
		l.PushString(err.Error())
		return 2
	}
	msg := dynamic.NewMessage(md)
	if err := tableToMessage(l, 2, msg); err != nil {
		l.PushNil()
		l.PushString(err.Error())
		return 2
	}
	data, err := msg.Marshal()
	if err != nil {
		l.PushNil()
		l.PushString(err.Error())
		return 2
	}
	l.PushString(string(data))
	return 1
}

func protoDecode(l *lumen.State) int {
	name := l.CheckString(1)
	data := l.CheckString(2)

	md, err := findMessage(name)
	if err != nil {
		l.PushNil()
		l.PushString(err.Error())
		return 2
	}
	msg := dynamic.NewMessage(md)
	if err := msg.Unmarshal([]byte(data)); err != nil {
		l.PushNil()
		l.PushString(err.Error())
		return 2
	}
	if err := pushMessage(l, msg); err != nil {
		l.PushNil()
		l.PushString(err.Error())
		return 2
	}
	return 1
}

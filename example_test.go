package mapres_test

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hupe1980/mapres"
	"github.com/hupe1980/mapres/namespace"
)

func ExampleMappedResource() {
	dir, _ := os.MkdirTemp("", "mapres")
	defer os.RemoveAll(dir)
	_ = os.WriteFile(filepath.Join(dir, "greeting.txt"), []byte("hello, mapped world"), 0o644)

	res := mapres.NewMappedResource()
	if err := res.LoadFromNamespace(namespace.NewLocal(dir), "greeting.txt", false); err != nil {
		fmt.Println(err)
		return
	}
	defer res.Close()

	fmt.Println(string(res.Bytes()), res.Size())
	// Output: hello, mapped world 19
}

package wordfreq_test

import (
	"context"
	"fmt"
	"strings"

	"github.com/suenchunyu/word-frequency/pkg/wordfreq"
)

func ExampleDriver_RunText() {
	entries, err := wordfreq.New().RunText(context.Background(), strings.NewReader("Mom mom mom, dad dad dog"))
	if err != nil {
		panic(err)
	}

	for _, e := range entries {
		fmt.Printf("%s\t%s\n", e.SortKey, e.Payload)
	}
	// Output:
	// 0001	dog
	// 0002	dad
	// 0003	mom
}

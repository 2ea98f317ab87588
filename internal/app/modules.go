package app

import (
	"github.com/vk/bakemeta/internal/depends"
	"github.com/vk/bakemeta/internal/parse"
	"github.com/vk/bakemeta/internal/recipename"
	"github.com/vk/bakemeta/modules/conf"
	"github.com/vk/bakemeta/modules/recipe"
)

// coreModules is the definitive list of handler modules compiled into
// the bakemeta binary. Order matters: the dispatcher gives the first
// registered handler precedence.
func coreModules(recorder *depends.Recorder, splitter *recipename.Splitter) []parse.Module {
	return []parse.Module{
		conf.New(recorder),
		recipe.New(recorder, splitter),
	}
}

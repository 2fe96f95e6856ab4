// Package factory instantiates pluggable modules, such as solver backends and
// metrics sinks, from a type name and a raw settings map taken from the
// configuration file.
//
//	reg := factory.NewRegistry[mip.Solver]()
//	_ = reg.Register("bnb", func(conf map[string]any) (mip.Solver, error) {
//	    var c struct{ NodeLimit int `json:"node_limit"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return &mip.BranchAndBound{NodeLimit: c.NodeLimit}, nil
//	})
//	s, err := reg.Create(factory.ModuleConfig{Type: "bnb"})
package factory

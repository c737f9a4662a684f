package tables

var Tables = []interface{}{
	&BlockInfo{},
	&Inscription{},
}

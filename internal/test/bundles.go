package test

// Bundles shaped like real build output, shared by the tests of every stage

// A standard registry with a runtime that starts "./src/index.js". The
// "unused" export of "./src/lib.js" is the only thing that reaches
// "./src/heavy.js", and nothing reaches "./src/orphan.js".
const StandardBundle = `(() => {
var __webpack_modules__ = ({
"./src/index.js": ((module, exports, __webpack_require__) => {
var lib = __webpack_require__("./src/lib.js");
console.log(lib.used());
}),
"./src/lib.js": ((module, exports, __webpack_require__) => {
__webpack_require__.d(exports, {
/* @common:if [condition="treeShake.lib.used"] */ used: () => (used), /* @common:endif */
/* @common:if [condition="treeShake.lib.unused"] */ unused: () => (unused), /* @common:endif */
});
var helper = __webpack_require__("./src/helper.js");
function used() { return helper.format("used"); }
/* @common:if [condition="treeShake.lib.unused"] */
function unused() { return __webpack_require__("./src/heavy.js").value; }
/* @common:endif */
}),
"./src/helper.js": ((module, exports) => {
exports.format = (text) => text.replace(/\//g, "-");
}),
"./src/heavy.js": ((module) => {
module.exports = { value: 42 };
}),
"./src/orphan.js": ((module) => {
module.exports = "orphan";
})
});
var __webpack_module_cache__ = {};
function __webpack_require__(moduleId) {
var cachedModule = __webpack_module_cache__[moduleId];
if (cachedModule !== undefined) {
return cachedModule.exports;
}
var module = __webpack_module_cache__[moduleId] = {
exports: {}
};
__webpack_modules__[moduleId](module, module.exports, __webpack_require__);
return module.exports;
}
(() => {
__webpack_require__.d = (exports, definition) => {
for(var key in definition) {
if(__webpack_require__.o(definition, key) && !__webpack_require__.o(exports, key)) {
Object.defineProperty(exports, key, { enumerable: true, get: definition[key] });
}
}
};
})();
(() => {
__webpack_require__.o = (obj, prop) => (Object.prototype.hasOwnProperty.call(obj, prop))
})();
var __webpack_exports__ = __webpack_require__("./src/index.js");
})();
`

// A split chunk of a shared package with no runtime of its own, so its
// entry module has to be supplied by the caller
const SplitChunkBundle = `"use strict";
(self["webpackChunkapp"] = self["webpackChunkapp"] || []).push([["vendors-lib"], {
"./node_modules/lib/index.js": ((module, exports, __webpack_require__) => {
__webpack_require__.d(exports, {
/* @common:if [condition="treeShake.lib.map"] */ map: () => (_map__WEBPACK_IMPORTED_MODULE_0__.map), /* @common:endif */
/* @common:if [condition="treeShake.lib.filter"] */ filter: () => (_filter__WEBPACK_IMPORTED_MODULE_1__.filter), /* @common:endif */
});
/* @common:if [condition="treeShake.lib.map"] */ var _map__WEBPACK_IMPORTED_MODULE_0__ = __webpack_require__("./node_modules/lib/map.js"); /* @common:endif */
/* @common:if [condition="treeShake.lib.filter"] */ var _filter__WEBPACK_IMPORTED_MODULE_1__ = __webpack_require__("./node_modules/lib/filter.js"); /* @common:endif */
}),
"./node_modules/lib/map.js": ((module, exports, __webpack_require__) => {
exports.map = (list, fn) => list.map(fn);
}),
"./node_modules/lib/filter.js": ((module, exports, __webpack_require__) => {
var internal = __webpack_require__("./node_modules/lib/internal.js");
exports.filter = (list, fn) => list.filter(internal.wrap(fn));
}),
"./node_modules/lib/internal.js": ((module, exports) => {
exports.wrap = (fn) => (x) => !!fn(x);
})
}]);
`
